// Package store persists guardrail policies, classification policies and
// the append-only violation audit trail in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// Store is the PostgreSQL-backed policy and violation store.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS guardrails_policies (
	scope       TEXT NOT NULL,
	scope_id    TEXT NOT NULL DEFAULT '',
	enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	guards      JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scope, scope_id)
);

CREATE TABLE IF NOT EXISTS classification_policies (
	data_type       TEXT NOT NULL,
	organization_id TEXT NOT NULL DEFAULT '',
	level           TEXT NOT NULL,
	retention_days  INTEGER NOT NULL DEFAULT 0,
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (data_type, organization_id)
);

CREATE TABLE IF NOT EXISTS guardrails_violations (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	project_id      TEXT NOT NULL DEFAULT '',
	user_id         TEXT NOT NULL,
	violation_type  TEXT NOT NULL,
	direction       TEXT NOT NULL,
	action_taken    TEXT NOT NULL,
	severity        TEXT NOT NULL,
	guard_name      TEXT NOT NULL,
	details         TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_violations_org_created
	ON guardrails_violations (organization_id, created_at);
`

// New connects to PostgreSQL, applies the schema and seeds the default
// guardrails policy so the (default, '') row always exists.
func New(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Policy store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the connection, applies the schema and seeds the
// default policy.
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := s.seedDefaultPolicy(ctx); err != nil {
		return fmt.Errorf("failed to seed default policy: %w", err)
	}

	return nil
}

// seedDefaultPolicy inserts the default guardrails policy if missing. The
// seeded row is never overwritten, administrators may have changed it.
func (s *Store) seedDefaultPolicy(ctx context.Context) error {
	policy := guardrails.DefaultPolicy()
	guards, err := json.Marshal(policyGuards{
		PII:           policy.PII,
		Jailbreak:     policy.Jailbreak,
		Toxicity:      policy.Toxicity,
		Hallucination: policy.Hallucination,
	})
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guardrails_policies (scope, scope_id, enabled, guards)
		VALUES ($1, '', $2, $3)
		ON CONFLICT (scope, scope_id) DO NOTHING`,
		guardrails.ScopeDefault, policy.Enabled, guards)
	return err
}

// policyGuards is the JSONB payload layout for the guards column.
type policyGuards struct {
	PII           guardrails.PIIGuardConfig           `json:"pii"`
	Jailbreak     guardrails.JailbreakGuardConfig     `json:"jailbreak"`
	Toxicity      guardrails.ToxicityGuardConfig      `json:"toxicity"`
	Hallucination guardrails.HallucinationGuardConfig `json:"hallucination"`
}

type policyRow struct {
	Scope   string `db:"scope"`
	ScopeID string `db:"scope_id"`
	Enabled bool   `db:"enabled"`
	Guards  []byte `db:"guards"`
}

// GetPolicy returns the guardrails policy for one (scope, scopeID) pair, or
// guardrails.ErrPolicyNotFound.
func (s *Store) GetPolicy(ctx context.Context, scope guardrails.Scope, scopeID string) (*guardrails.Policy, error) {
	var row policyRow
	err := s.db.GetContext(ctx, &row, `
		SELECT scope, scope_id, enabled, guards
		FROM guardrails_policies
		WHERE scope = $1 AND scope_id = $2`,
		scope, scopeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, guardrails.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guardrails policy: %w", err)
	}

	var guards policyGuards
	if err := json.Unmarshal(row.Guards, &guards); err != nil {
		return nil, fmt.Errorf("failed to decode guards payload: %w", err)
	}

	return &guardrails.Policy{
		Scope:         guardrails.Scope(row.Scope),
		ScopeID:       row.ScopeID,
		Enabled:       row.Enabled,
		PII:           guards.PII,
		Jailbreak:     guards.Jailbreak,
		Toxicity:      guards.Toxicity,
		Hallucination: guards.Hallucination,
	}, nil
}

// UpsertPolicy creates or replaces the policy for its (scope, scopeID) pair.
func (s *Store) UpsertPolicy(ctx context.Context, policy *guardrails.Policy) error {
	guards, err := json.Marshal(policyGuards{
		PII:           policy.PII,
		Jailbreak:     policy.Jailbreak,
		Toxicity:      policy.Toxicity,
		Hallucination: policy.Hallucination,
	})
	if err != nil {
		return fmt.Errorf("failed to encode guards payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guardrails_policies (scope, scope_id, enabled, guards, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (scope, scope_id)
		DO UPDATE SET enabled = EXCLUDED.enabled, guards = EXCLUDED.guards, updated_at = now()`,
		policy.Scope, policy.ScopeID, policy.Enabled, guards)
	if err != nil {
		return fmt.Errorf("failed to upsert guardrails policy: %w", err)
	}
	return nil
}

// GetClassificationPolicy returns the active classification policy for a
// data type, scoped to an organization or global when organizationID is
// empty. Returns classify.ErrPolicyNotFound when no active row matches.
func (s *Store) GetClassificationPolicy(ctx context.Context, dataType classify.DataType, organizationID string) (*classify.Policy, error) {
	var policy classify.Policy
	err := s.db.GetContext(ctx, &policy, `
		SELECT data_type, organization_id, level, retention_days, active
		FROM classification_policies
		WHERE data_type = $1 AND organization_id = $2 AND active`,
		dataType, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, classify.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load classification policy: %w", err)
	}
	return &policy, nil
}

// UpsertClassificationPolicy creates or replaces a classification policy.
func (s *Store) UpsertClassificationPolicy(ctx context.Context, policy *classify.Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_policies (data_type, organization_id, level, retention_days, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (data_type, organization_id)
		DO UPDATE SET level = EXCLUDED.level, retention_days = EXCLUDED.retention_days,
			active = EXCLUDED.active, updated_at = now()`,
		policy.DataType, policy.OrganizationID, policy.Level, policy.RetentionDays, policy.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert classification policy: %w", err)
	}
	return nil
}

// InsertViolation appends one violation record. Violations are append-only:
// there is no update or delete path anywhere in this package.
func (s *Store) InsertViolation(ctx context.Context, violation *guardrails.Violation) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO guardrails_violations
			(id, organization_id, project_id, user_id, violation_type, direction,
			 action_taken, severity, guard_name, details, created_at)
		VALUES
			(:id, :organization_id, :project_id, :user_id, :violation_type, :direction,
			 :action_taken, :severity, :guard_name, :details, :created_at)`,
		violation)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// ViolationFilter narrows ListViolations. Zero values mean "no filter".
type ViolationFilter struct {
	OrganizationID string
	Since          time.Time
	Until          time.Time
	Limit          int
}

// ListViolations returns violations matching the filter, oldest first.
func (s *Store) ListViolations(ctx context.Context, filter ViolationFilter) ([]guardrails.Violation, error) {
	query := `
		SELECT id, organization_id, project_id, user_id, violation_type, direction,
			action_taken, severity, guard_name, details, created_at
		FROM guardrails_violations`

	var conditions []string
	var args []interface{}
	arg := 1

	if filter.OrganizationID != "" {
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", arg))
		args = append(args, filter.OrganizationID)
		arg++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", arg))
		args = append(args, filter.Since)
		arg++
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", arg))
		args = append(args, filter.Until)
		arg++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, filter.Limit)
	}

	var violations []guardrails.Violation
	if err := s.db.SelectContext(ctx, &violations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	return violations, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL hides credentials in connection strings before logging.
func maskDatabaseURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
