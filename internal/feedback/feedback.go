// Package feedback is the independent CRUD service collecting user
// feedback. It shares no logic with the departure pipeline; the server
// mounts it only when a database is configured.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/internal/jobs"
)

var (
	// ErrNotFound is returned when a feedback entry does not exist.
	ErrNotFound = errors.New("feedback entry not found")
	// ErrInvalid wraps validation failures on a submission.
	ErrInvalid = errors.New("invalid submission")
)

// Submission is the client-provided part of an entry.
type Submission struct {
	Category string `json:"category" validate:"required,oneof=bug idea data other"`
	Message  string `json:"message" validate:"required,min=3,max=2000"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

// Entry is a stored feedback record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists entries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the feedback table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feedback (
			id UUID PRIMARY KEY,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure feedback schema: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, sub Submission) (Entry, error) {
	entry := Entry{
		ID:        uuid.New(),
		Category:  sub.Category,
		Message:   sub.Message,
		Email:     sub.Email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, category, message, email, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.Category, entry.Message, entry.Email, entry.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("insert feedback: %w", err)
	}
	return entry, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	var entry Entry
	err := s.pool.QueryRow(ctx,
		`SELECT id, category, message, email, created_at FROM feedback WHERE id = $1`, id).
		Scan(&entry.ID, &entry.Category, &entry.Message, &entry.Email, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get feedback: %w", err)
	}
	return entry, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, message, email, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.Category, &entry.Message, &entry.Email, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Service validates submissions, stores them, and enqueues the
// notification task. Notification enqueue failures are logged, never
// surfaced: losing an email must not lose the feedback.
type Service struct {
	store    *Store
	validate *validator.Validate
	queue    *asynq.Client
	log      zerolog.Logger
}

func NewService(store *Store, queue *asynq.Client, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		queue:    queue,
		log:      log,
	}
}

// Submit validates and stores one submission.
func (svc *Service) Submit(ctx context.Context, sub Submission) (Entry, error) {
	if err := svc.validate.Struct(sub); err != nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	entry, err := svc.store.Insert(ctx, sub)
	if err != nil {
		return Entry{}, err
	}

	if svc.queue != nil {
		payload, _ := json.Marshal(jobs.FeedbackNotifyPayload{FeedbackID: entry.ID.String()})
		task := asynq.NewTask(jobs.TaskFeedbackNotify, payload)
		if _, err := svc.queue.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
			svc.log.Warn().Err(err).Str("feedback", entry.ID.String()).Msg("notify enqueue failed")
		}
	}
	return entry, nil
}

// Recent lists the newest entries.
func (svc *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return svc.store.List(ctx, limit)
}

// ValidateOnly runs input validation without persisting, used by tests and
// the handler's fast-fail path.
func (svc *Service) ValidateOnly(sub Submission) error {
	return svc.validate.Struct(sub)
}
