package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
)

// CachedModerator wraps a Moderator with a verdict cache keyed by content
// hash. Resubmitted identical text skips the model call. Cache failures are
// logged and ignored; the underlying moderator's skip-on-failure contract is
// preserved.
type CachedModerator struct {
	inner domain.Moderator
	cache domain.Cache
	ttl   time.Duration
}

// NewCached wraps inner with verdict caching. A zero ttl disables caching
// and returns inner unchanged.
func NewCached(inner domain.Moderator, cache domain.Cache, ttl time.Duration) domain.Moderator {
	if cache == nil || ttl <= 0 {
		return inner
	}
	return &CachedModerator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// Moderate checks the cache before calling the model. Only successful
// verdicts are cached; failures always pass through.
func (m *CachedModerator) Moderate(ctx context.Context, text string) (*domain.ModerationVerdict, error) {
	hash := contentHash(text)

	cached, err := m.cache.GetVerdict(ctx, hash)
	if err != nil {
		slog.Warn("verdict cache read failed", "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	verdict, err := m.inner.Moderate(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := m.cache.SetVerdict(ctx, hash, verdict, m.ttl); err != nil {
		slog.Warn("verdict cache write failed", "error", err)
	}

	return verdict, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
