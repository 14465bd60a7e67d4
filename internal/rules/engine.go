// Package rules provides the CEL-Go based custom check engine.
//
// Custom checks are operator-supplied heuristics evaluated alongside the
// built-in ones: a CEL boolean expression over the submission and the
// author's history signals, with a flag code and score deltas applied when
// the expression is true.
package rules

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Engine is the CEL-based custom check engine.
type Engine struct {
	mu             sync.RWMutex
	env            *cel.Env
	compiledChecks map[string]*CompiledCheck
}

// CompiledCheck holds a pre-compiled CEL program.
type CompiledCheck struct {
	Config  *domain.CheckConfig
	Program cel.Program
}

// NewEngine creates a new custom check engine.
func NewEngine() (*Engine, error) {
	// CEL environment with submission and history variables
	env, err := cel.NewEnv(
		cel.Variable("title", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("evidence_url", cel.StringType),
		cel.Variable("author_id", cel.StringType),
		cel.Variable("title_length", cel.IntType),
		cel.Variable("description_length", cel.IntType),
		cel.Variable("recent_count", cel.IntType),
		cel.Variable("rejection_rate", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:            env,
		compiledChecks: make(map[string]*CompiledCheck),
	}, nil
}

// ValidateCheck compiles and validates a check without mutating loaded checks.
func (e *Engine) ValidateCheck(cfg *domain.CheckConfig) error {
	if cfg == nil {
		return fmt.Errorf("check config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileCheck(cfg)
	return err
}

// LoadCheck compiles and loads a check into the engine.
func (e *Engine) LoadCheck(cfg *domain.CheckConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileCheck(cfg)
	if err != nil {
		return err
	}

	e.compiledChecks[cfg.ID] = compiled

	return nil
}

// UnloadCheck removes a loaded check from the engine. Unknown IDs are a
// no-op.
func (e *Engine) UnloadCheck(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.compiledChecks, id)
}

// LoadChecks compiles and loads multiple checks.
func (e *Engine) LoadChecks(configs []*domain.CheckConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadCheck(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Signals holds the variables a check expression can reference.
type Signals struct {
	Title         string
	Description   string
	EvidenceURL   string
	AuthorID      string
	RecentCount   int
	RejectionRate float64
}

// EvaluateAll evaluates all loaded checks against the signals.
// Results are returned for every check, triggered or not.
func (e *Engine) EvaluateAll(sig *Signals) []domain.CheckResult {
	e.mu.RLock()
	checks := make([]*CompiledCheck, 0, len(e.compiledChecks))
	for _, check := range e.compiledChecks {
		checks = append(checks, check)
	}
	e.mu.RUnlock()

	if len(checks) == 0 {
		return nil
	}

	// Lengths are character counts, matching the built-in heuristics.
	activation := map[string]any{
		"title":              sig.Title,
		"description":        sig.Description,
		"evidence_url":       sig.EvidenceURL,
		"author_id":          sig.AuthorID,
		"title_length":       int64(utf8.RuneCountInString(sig.Title)),
		"description_length": int64(utf8.RuneCountInString(sig.Description)),
		"recent_count":       int64(sig.RecentCount),
		"rejection_rate":     sig.RejectionRate,
	}

	results := make([]domain.CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, e.evaluateCheck(check, activation))
	}

	return results
}

// evaluateCheck evaluates a single check and returns the result.
func (e *Engine) evaluateCheck(check *CompiledCheck, activation map[string]any) domain.CheckResult {
	start := time.Now()

	result := domain.CheckResult{
		CheckID: check.Config.ID,
	}

	out, _, err := check.Program.Eval(activation)
	if err != nil {
		result.Err = fmt.Sprintf("evaluation error: %v", err)
		result.ProcessMs = time.Since(start).Milliseconds()
		return result
	}

	if toBool(out) {
		result.Triggered = true
		result.Flag = check.Config.Flag
		result.FraudDelta = check.Config.FraudDelta
		result.QualityDelta = check.Config.QualityDelta
	}

	result.ProcessMs = time.Since(start).Milliseconds()
	return result
}

// toBool converts a CEL value to a boolean.
func toBool(val ref.Val) bool {
	if b, ok := val.(types.Bool); ok {
		return bool(b)
	}
	return false
}

// ChecksCount returns the number of loaded checks.
func (e *Engine) ChecksCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledChecks)
}

// ReloadChecks clears all existing checks and loads new ones.
// This enables hot-reloading of checks from the database.
func (e *Engine) ReloadChecks(configs []*domain.CheckConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newChecks := make(map[string]*CompiledCheck)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileCheck(cfg)
		if err != nil {
			return err
		}
		newChecks[cfg.ID] = compiled
	}

	e.compiledChecks = newChecks

	return nil
}

// GetLoadedChecks returns the currently loaded check configurations.
func (e *Engine) GetLoadedChecks() []*domain.CheckConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	checks := make([]*domain.CheckConfig, 0, len(e.compiledChecks))
	for _, compiled := range e.compiledChecks {
		checks = append(checks, compiled.Config)
	}
	return checks
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledChecks = make(map[string]*CompiledCheck)
	return nil
}

func (e *Engine) compileCheck(cfg *domain.CheckConfig) (*CompiledCheck, error) {
	if cfg.Flag == "" {
		return nil, fmt.Errorf("check %s: flag is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile check %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("check %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for check %s: %w", cfg.ID, err)
	}

	return &CompiledCheck{
		Config:  cfg,
		Program: program,
	}, nil
}
