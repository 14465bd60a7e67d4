package repository

// Schema definitions for the Sentinel database.
// Compatible with both SQLite and PostgreSQL.

const schemaSubmissions = `
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    evidence_url TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_author ON submissions(author_id);
CREATE INDEX IF NOT EXISTS idx_submissions_author_created ON submissions(author_id, created_at);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    submission_id TEXT,
    author_id TEXT NOT NULL,
    fraud_score REAL NOT NULL,
    content_quality_score REAL NOT NULL,
    flags TEXT NOT NULL,
    recommended_action TEXT NOT NULL,
    suggestions TEXT NOT NULL,
    details TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_submission ON assessments(submission_id);
CREATE INDEX IF NOT EXISTS idx_assessments_author ON assessments(author_id);
CREATE INDEX IF NOT EXISTS idx_assessments_action ON assessments(recommended_action);
`

const schemaCheckConfigs = `
CREATE TABLE IF NOT EXISTS check_configs (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    flag TEXT NOT NULL,
    fraud_delta REAL NOT NULL DEFAULT 0,
    quality_delta REAL NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_check_configs_enabled ON check_configs(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSubmissions,
		schemaAssessments,
		schemaCheckConfigs,
	}
}
