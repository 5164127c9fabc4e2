package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/slopwatch/internal/model"
)

// SQLiteStore persists claims and verdicts in a SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite creates or opens a SQLite database at the given path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    domain TEXT NOT NULL,
    action TEXT NOT NULL,
    target TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL,
    strategy TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at);

CREATE TABLE IF NOT EXISTS verdicts (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL UNIQUE,
    claim_text TEXT NOT NULL DEFAULT '',
    domain TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('verified','lie','partial','unknown')),
    confidence REAL NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    evidence TEXT NOT NULL DEFAULT '[]',
    detector TEXT NOT NULL DEFAULT '',
    expired INTEGER NOT NULL DEFAULT 0,
    resolved_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verdicts_resolved ON verdicts(resolved_at);
CREATE INDEX IF NOT EXISTS idx_verdicts_status ON verdicts(status);
`

func (s *SQLiteStore) SaveClaim(ctx context.Context, claim model.Claim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (id, session_id, text, domain, action, target, confidence, strategy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		claim.ID,
		claim.SessionID,
		claim.Text,
		string(claim.Domain),
		string(claim.Action),
		claim.Target,
		claim.Confidence,
		claim.Strategy,
		claim.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting claim: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveVerdict(ctx context.Context, v model.Verdict) error {
	evidence := v.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	encoded, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("marshalling evidence: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, claim_id, claim_text, domain, status, confidence, reason, evidence, detector, expired, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO NOTHING`,
		v.ID,
		v.ClaimID,
		v.ClaimText,
		string(v.Domain),
		string(v.Status),
		v.Confidence,
		v.Reason,
		string(encoded),
		v.DetectorName,
		v.Expired,
		v.ResolvedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting verdict: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateVerdict
	}
	return nil
}

const verdictColumns = "id, claim_id, claim_text, domain, status, confidence, reason, evidence, detector, expired, resolved_at"

func (s *SQLiteStore) Verdicts(ctx context.Context, filter Filter) ([]model.Verdict, error) {
	var (
		clauses []string
		args    []any
	)

	if !filter.Since.IsZero() {
		clauses = append(clauses, "resolved_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "resolved_at <= ?")
		args = append(args, filter.Until.UnixNano())
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		clauses = append(clauses, "domain = ?")
		args = append(args, string(filter.Domain))
	}

	query := "SELECT " + verdictColumns + " FROM verdicts"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY resolved_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	var out []model.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Verdict(ctx context.Context, claimID string) (model.Verdict, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+verdictColumns+" FROM verdicts WHERE claim_id = ?", claimID)
	v, err := scanVerdict(row)
	if err == sql.ErrNoRows {
		return model.Verdict{}, false, nil
	}
	if err != nil {
		return model.Verdict{}, false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) CountClaims(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM claims WHERE created_at >= ?", since.UnixNano()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting claims: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning prune: %w", err)
	}
	defer tx.Rollback()

	cutoff := before.UnixNano()
	var removed int64
	for _, stmt := range []string{
		"DELETE FROM verdicts WHERE resolved_at < ?",
		"DELETE FROM claims WHERE created_at < ?",
	} {
		res, err := tx.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return int(removed), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row scanner) (model.Verdict, error) {
	var (
		v          model.Verdict
		domain     string
		status     string
		evidence   string
		expired    bool
		resolvedAt int64
	)
	err := row.Scan(&v.ID, &v.ClaimID, &v.ClaimText, &domain, &status, &v.Confidence,
		&v.Reason, &evidence, &v.DetectorName, &expired, &resolvedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return v, err
		}
		return v, fmt.Errorf("scanning verdict: %w", err)
	}

	v.Domain = model.Domain(domain)
	v.Status = model.Status(status)
	v.Expired = expired
	v.ResolvedAt = time.Unix(0, resolvedAt).UTC()
	if err := json.Unmarshal([]byte(evidence), &v.Evidence); err != nil {
		return v, fmt.Errorf("unmarshalling evidence: %w", err)
	}
	if len(v.Evidence) == 0 {
		v.Evidence = nil
	}
	return v, nil
}
