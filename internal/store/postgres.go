package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead-hunter/pkg/models"
)

// PostgresStore is a LeadStore backed by a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to databaseURL and applies the schema
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts, err := schemaStatements("postgres.sql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead *models.Lead) (string, error) {
	row := *lead
	row.ID = uuid.NewString()
	row.Status = models.LeadStatusNew
	row.CreatedAt = s.now()

	if _, err := s.pool.Exec(ctx, rebind(queryInsertLead), leadInsertArgs(&row)...); err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return row.ID, nil
}

func (s *PostgresStore) SaveScrapedLead(ctx context.Context, input models.ScrapedLeadInput) (string, error) {
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

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, rebind(queryInsertLead), leadInsertArgs(lead)...); err != nil {
			return fmt.Errorf("insert scraped lead: %w", err)
		}
		if _, err := tx.Exec(ctx, rebind(queryInsertComment),
			uuid.NewString(), lead.ID, input.RawJobDescription, models.SystemAuthor, now.UnixMilli()); err != nil {
			return fmt.Errorf("insert description comment: %w", err)
		}
		return nil
	})
	if err != nil {
		// unique violation on job_url: another run won the insert
		if input.JobURL != "" {
			if existing, lookupErr := s.GetLeadByJobURL(ctx, input.JobURL); lookupErr == nil && existing != nil {
				return existing.ID, nil
			}
		}
		return "", err
	}
	return lead.ID, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx, rebind(queryGetLead), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (s *PostgresStore) GetLeadByJobURL(ctx context.Context, jobURL string) (*models.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx, rebind(queryGetLeadByJobURL), jobURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by job url: %w", err)
	}
	return lead, nil
}

func (s *PostgresStore) PatchLead(ctx context.Context, id string, patch models.LeadPatch) error {
	if patch.IsEmpty() {
		var n int64
		if err := s.pool.QueryRow(ctx, rebind(queryLeadExists), id).Scan(&n); err != nil {
			return fmt.Errorf("check lead: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	query, args := buildPatch(id, patch)
	tag, err := s.pool.Exec(ctx, rebind(query), args...)
	if err != nil {
		return fmt.Errorf("patch lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, rebind(queryDeleteLead), id)
		if err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, rebind(queryDeleteComments), id); err != nil {
			return fmt.Errorf("delete lead comments: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListLeads)
}

func (s *PostgresStore) ListScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListScraped, clampLimit(limit))
}

func (s *PostgresStore) ListPendingScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	return s.queryLeads(ctx, queryListPending, clampLimit(limit))
}

func (s *PostgresStore) AddComment(ctx context.Context, leadID, content, author string) (string, error) {
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx, rebind(queryInsertComment), id, leadID, content, author, s.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, leadID string) ([]*models.Comment, error) {
	rows, err := s.pool.Query(ctx, rebind(queryListComments), leadID)
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

func (s *PostgresStore) UpdateComment(ctx context.Context, id, content string) error {
	tag, err := s.pool.Exec(ctx, rebind(queryUpdateComment), content, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, rebind(queryDeleteComment), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) queryLeads(ctx context.Context, query string, args ...any) ([]*models.Lead, error) {
	rows, err := s.pool.Query(ctx, rebind(query), args...)
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
