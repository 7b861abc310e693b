package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/spherical/lecturecast/internal/domain"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Run is one row of the run ledger.
type Run struct {
	ID           string           `json:"id" db:"id"`
	Namespace    string           `json:"namespace" db:"namespace"`
	Filename     string           `json:"filename" db:"filename"`
	State        domain.RunState  `json:"state" db:"state"`
	PageCount    int              `json:"page_count" db:"page_count"`
	ErrorKind    domain.ErrorType `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string           `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// RunRepository persists run lifecycle transitions. It implements domain.RunRecorder.
type RunRepository struct {
	db  DB
	now func() time.Time
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordTransition inserts the run on its first transition and updates it afterwards.
func (r *RunRepository) RecordTransition(ctx context.Context, t domain.RunTransition) error {
	now := r.now()

	query := `
		INSERT INTO runs (id, namespace, filename, state, page_count, error_kind, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			page_count = excluded.page_count,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		t.RunID, t.Namespace, t.Filename, string(t.State), t.PageCount,
		string(t.ErrorKind), t.ErrorMessage, now, now,
	)
	return err
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, namespace, filename, state, page_count, error_kind, error_message, created_at, updated_at
		FROM runs WHERE id = $1
	`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, namespace, filename, state, page_count, error_kind, error_message, created_at, updated_at
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var state, kind string
	err := s.Scan(
		&run.ID, &run.Namespace, &run.Filename, &state, &run.PageCount,
		&kind, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.State = domain.RunState(state)
	run.ErrorKind = domain.ErrorType(kind)
	return run, nil
}
