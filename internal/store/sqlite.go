package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lead-hunter/pkg/models"
)

// SQLiteStore is a LeadStore backed by a single SQLite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one writer; this also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts, err := schemaStatements("sqlite.sql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) InsertLead(ctx context.Context, lead *models.Lead) (string, error) {
	row := *lead
	row.ID = uuid.NewString()
	row.Status = models.LeadStatusNew
	row.CreatedAt = s.now()

	if _, err := s.db.ExecContext(ctx, queryInsertLead, leadInsertArgs(&row)...); err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return row.ID, nil
}

func (s *SQLiteStore) SaveScrapedLead(ctx context.Context, input models.ScrapedLeadInput) (string, error) {
	if input.JobURL != "" {
		existing, err := s.GetLeadByJobURL(ctx, input.JobURL)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	now := s.now()
	lead := newScrapedLead(uuid.NewString(), input, now)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertLead, leadInsertArgs(lead)...); err != nil {
			return fmt.Errorf("insert scraped lead: %w", err)
		}
		if _, err := tx.ExecContext(ctx, queryInsertComment,
			uuid.NewString(), lead.ID, input.RawJobDescription, models.SystemAuthor, now.UnixMilli()); err != nil {
			return fmt.Errorf("insert description comment: %w", err)
		}
		return nil
	})
	if err != nil {
		// a concurrent run may have stored the same posting first
		if input.JobURL != "" {
			if existing, lookupErr := s.GetLeadByJobURL(ctx, input.JobURL); lookupErr == nil && existing != nil {
				return existing.ID, nil
			}
		}
		return "", err
	}
	return lead.ID, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx, queryGetLead, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (s *SQLiteStore) GetLeadByJobURL(ctx context.Context, jobURL string) (*models.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx, queryGetLeadByJobURL, jobURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by job url: %w", err)
	}
	return lead, nil
}

func (s *SQLiteStore) PatchLead(ctx context.Context, id string, patch models.LeadPatch) error {
	if patch.IsEmpty() {
		var n int
		if err := s.db.QueryRowContext(ctx, queryLeadExists, id).Scan(&n); err != nil {
			return fmt.Errorf("check lead: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	query, args := buildPatch(id, patch)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch lead: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryDeleteLead, id)
		if err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryDeleteComments, id); err != nil {
			return fmt.Errorf("delete lead comments: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListLeads)
}

func (s *SQLiteStore) ListScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListScraped, clampLimit(limit))
}

func (s *SQLiteStore) ListPendingScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListPending, clampLimit(limit))
}

func (s *SQLiteStore) AddComment(ctx context.Context, leadID, content, author string) (string, error) {
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, queryInsertComment, id, leadID, content, author, s.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, leadID string) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, queryListComments, leadID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (s *SQLiteStore) UpdateComment(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx, queryUpdateComment, content, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, queryDeleteComment, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) queryLeads(ctx context.Context, query string, args ...any) ([]*models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
