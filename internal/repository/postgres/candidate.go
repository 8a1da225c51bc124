package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/outreach-engine/internal/model"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
)

type candidateRepository struct {
	BaseRepository
}

func NewCandidateRepository(base BaseRepository) *candidateRepository {
	return &candidateRepository{BaseRepository: base}
}

const candidateColumns = `
	id, name, phone, chat_handle, email, project, status,
	last_reply_at, silent_since, transferred_at,
	sms_attempts, last_sms_at, created_at, updated_at
`

func (r *candidateRepository) Create(ctx context.Context, candidate *model.Candidate) error {
	query := `
		INSERT INTO candidates (
			id, name, phone, chat_handle, email, project, status,
			last_reply_at, silent_since, transferred_at,
			sms_attempts, last_sms_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		candidate.ID,
		candidate.Name,
		candidate.Phone,
		candidate.ChatHandle,
		candidate.Email,
		candidate.Project,
		candidate.Status,
		candidate.LastReplyAt,
		candidate.SilentSince,
		candidate.TransferredAt,
		candidate.SMSAttempts,
		candidate.LastSMSAt,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

func (r *candidateRepository) Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE id = $1`, candidateColumns)

	var candidate model.Candidate
	if err := r.db.GetContext(ctx, &candidate, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("candidate", err)
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &candidate, nil
}

func (r *candidateRepository) List(ctx context.Context, filters *model.CandidateFilters) ([]*model.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE 1=1`, candidateColumns)
	args := []interface{}{}

	if filters != nil && len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(statuses))
	}
	if filters != nil && filters.Project != "" {
		query += fmt.Sprintf(" AND project = $%d", len(args)+1)
		args = append(args, filters.Project)
	}
	query += " ORDER BY created_at, id"

	var candidates []*model.Candidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// Update runs the mutator against a row locked with SELECT ... FOR UPDATE, so
// concurrent sweeps and manual edits on the same candidate serialize.
func (r *candidateRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*model.Candidate) error) (*model.Candidate, error) {
	var updated *model.Candidate
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM candidates WHERE id = $1 FOR UPDATE`, candidateColumns)

		var candidate model.Candidate
		if err := tx.GetContext(ctx, &candidate, query, id); err != nil {
			if isNoRows(err) {
				return apperrors.NotFound("candidate", err)
			}
			return fmt.Errorf("failed to lock candidate: %w", err)
		}

		if err := mutate(&candidate); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE candidates SET
				name = $2, phone = $3, chat_handle = $4, email = $5,
				project = $6, status = $7, last_reply_at = $8,
				silent_since = $9, transferred_at = $10,
				sms_attempts = $11, last_sms_at = $12, updated_at = $13
			WHERE id = $1
		`,
			candidate.ID,
			candidate.Name,
			candidate.Phone,
			candidate.ChatHandle,
			candidate.Email,
			candidate.Project,
			candidate.Status,
			candidate.LastReplyAt,
			candidate.SilentSince,
			candidate.TransferredAt,
			candidate.SMSAttempts,
			candidate.LastSMSAt,
			candidate.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update candidate: %w", err)
		}
		updated = &candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
