package report

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
)

type Repository interface {
	Save(ctx context.Context, r diagnosis.Report) error
	Latest(ctx context.Context, sessionID string) (*diagnosis.Report, error)
}

// NewRepository returns a Postgres-backed repository, or an in-memory one
// when the server runs without a database.
func NewRepository(db *sql.DB) Repository {
	if db == nil {
		return &memoryRepo{reports: make(map[string]diagnosis.Report)}
	}
	return &postgresRepo{db: db}
}

type postgresRepo struct {
	db *sql.DB
}

func (r *postgresRepo) Save(ctx context.Context, rep diagnosis.Report) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (session_id, disease, icd10, confidence, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rep.SessionID, rep.Disease, rep.ICD10, rep.Confidence, rep.Body, rep.CreatedAt)
	return errors.Wrap(err, "failed to save report")
}

func (r *postgresRepo) Latest(ctx context.Context, sessionID string) (*diagnosis.Report, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, disease, icd10, confidence, body, created_at
		FROM reports
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)

	var rep diagnosis.Report
	err := row.Scan(&rep.SessionID, &rep.Disease, &rep.ICD10, &rep.Confidence, &rep.Body, &rep.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// memoryRepo keeps the most recent report per session.
type memoryRepo struct {
	mu      sync.Mutex
	reports map[string]diagnosis.Report
}

func (r *memoryRepo) Save(_ context.Context, rep diagnosis.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.SessionID] = rep
	return nil
}

func (r *memoryRepo) Latest(_ context.Context, sessionID string) (*diagnosis.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[sessionID]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}
