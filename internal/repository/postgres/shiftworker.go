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

type shiftWorkerRepository struct {
	BaseRepository
}

func NewShiftWorkerRepository(base BaseRepository) *shiftWorkerRepository {
	return &shiftWorkerRepository{BaseRepository: base}
}

const shiftWorkerColumns = `
	id, name, phone, chat_handle, email, site,
	shift_end_date, return_confirmed, advance_notice_at,
	current_checkpoint, checkpoint_date, checkpoint_status, checkpoint_response,
	created_at, updated_at
`

func (r *shiftWorkerRepository) Create(ctx context.Context, worker *model.ShiftWorker) error {
	query := `
		INSERT INTO shift_workers (
			id, name, phone, chat_handle, email, site,
			shift_end_date, return_confirmed, advance_notice_at,
			current_checkpoint, checkpoint_date, checkpoint_status, checkpoint_response,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		worker.ID,
		worker.Name,
		worker.Phone,
		worker.ChatHandle,
		worker.Email,
		worker.Site,
		worker.ShiftEndDate,
		worker.ReturnConfirmed,
		worker.AdvanceNoticeAt,
		worker.CurrentCheckpoint,
		worker.CheckpointDate,
		worker.CheckpointStatus,
		worker.CheckpointResponse,
		worker.CreatedAt,
		worker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shift worker: %w", err)
	}
	return nil
}

func (r *shiftWorkerRepository) Get(ctx context.Context, id uuid.UUID) (*model.ShiftWorker, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_workers WHERE id = $1`, shiftWorkerColumns)

	var worker model.ShiftWorker
	if err := r.db.GetContext(ctx, &worker, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("shift worker", err)
		}
		return nil, fmt.Errorf("failed to get shift worker: %w", err)
	}
	return &worker, nil
}

func (r *shiftWorkerRepository) List(ctx context.Context, filters *model.ShiftWorkerFilters) ([]*model.ShiftWorker, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_workers WHERE 1=1`, shiftWorkerColumns)
	args := []interface{}{}

	if filters != nil && len(filters.Sites) > 0 {
		query += fmt.Sprintf(" AND site = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filters.Sites))
	}
	if filters != nil && filters.CheckpointStatus != "" {
		query += fmt.Sprintf(" AND checkpoint_status = $%d", len(args)+1)
		args = append(args, filters.CheckpointStatus)
	}
	query += " ORDER BY created_at, id"

	var workers []*model.ShiftWorker
	if err := r.db.SelectContext(ctx, &workers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list shift workers: %w", err)
	}
	return workers, nil
}

// Update runs the mutator against a row locked with SELECT ... FOR UPDATE.
func (r *shiftWorkerRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*model.ShiftWorker) error) (*model.ShiftWorker, error) {
	var updated *model.ShiftWorker
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM shift_workers WHERE id = $1 FOR UPDATE`, shiftWorkerColumns)

		var worker model.ShiftWorker
		if err := tx.GetContext(ctx, &worker, query, id); err != nil {
			if isNoRows(err) {
				return apperrors.NotFound("shift worker", err)
			}
			return fmt.Errorf("failed to lock shift worker: %w", err)
		}

		if err := mutate(&worker); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE shift_workers SET
				name = $2, phone = $3, chat_handle = $4, email = $5, site = $6,
				shift_end_date = $7, return_confirmed = $8, advance_notice_at = $9,
				current_checkpoint = $10, checkpoint_date = $11,
				checkpoint_status = $12, checkpoint_response = $13, updated_at = $14
			WHERE id = $1
		`,
			worker.ID,
			worker.Name,
			worker.Phone,
			worker.ChatHandle,
			worker.Email,
			worker.Site,
			worker.ShiftEndDate,
			worker.ReturnConfirmed,
			worker.AdvanceNoticeAt,
			worker.CurrentCheckpoint,
			worker.CheckpointDate,
			worker.CheckpointStatus,
			worker.CheckpointResponse,
			worker.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update shift worker: %w", err)
		}
		updated = &worker
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
