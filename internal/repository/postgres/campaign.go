package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/outreach-engine/internal/model"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
)

type campaignRepository struct {
	BaseRepository
}

func NewCampaignRepository(base BaseRepository) *campaignRepository {
	return &campaignRepository{BaseRepository: base}
}

// campaignRow maps the campaigns table; list-valued fields live in jsonb columns.
type campaignRow struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	Template       string    `db:"template"`
	Channels       []byte    `db:"channels"`
	Sources        []byte    `db:"sources"`
	Exclusions     []byte    `db:"exclusions"`
	Projects       []byte    `db:"projects"`
	Status         string    `db:"status"`
	RecipientCount int       `db:"recipient_count"`
	Stats          []byte    `db:"stats"`
	Outcomes       []byte    `db:"outcomes"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const campaignColumns = `
	id, name, template, channels, sources, exclusions, projects,
	status, recipient_count, stats, outcomes, created_at, updated_at
`

func toRow(c *model.Campaign) (*campaignRow, error) {
	row := &campaignRow{
		ID:             c.ID,
		Name:           c.Name,
		Template:       c.Template,
		Status:         string(c.Status),
		RecipientCount: c.RecipientCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	var err error
	if row.Channels, err = json.Marshal(c.Channels); err != nil {
		return nil, err
	}
	if row.Sources, err = json.Marshal(c.Sources); err != nil {
		return nil, err
	}
	if row.Exclusions, err = json.Marshal(c.Exclusions); err != nil {
		return nil, err
	}
	if row.Projects, err = json.Marshal(c.Projects); err != nil {
		return nil, err
	}
	if row.Stats, err = json.Marshal(c.Stats); err != nil {
		return nil, err
	}
	if row.Outcomes, err = json.Marshal(c.Outcomes); err != nil {
		return nil, err
	}
	return row, nil
}

func (row *campaignRow) toModel() (*model.Campaign, error) {
	c := &model.Campaign{
		Base: model.Base{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Name:           row.Name,
		Template:       row.Template,
		Status:         model.CampaignStatus(row.Status),
		RecipientCount: row.RecipientCount,
	}
	for _, field := range []struct {
		raw []byte
		dst interface{}
	}{
		{row.Channels, &c.Channels},
		{row.Sources, &c.Sources},
		{row.Exclusions, &c.Exclusions},
		{row.Projects, &c.Projects},
		{row.Stats, &c.Stats},
		{row.Outcomes, &c.Outcomes},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("failed to decode campaign field: %w", err)
		}
	}
	return c, nil
}

func (r *campaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	row, err := toRow(campaign)
	if err != nil {
		return fmt.Errorf("failed to encode campaign: %w", err)
	}

	query := `
		INSERT INTO campaigns (
			id, name, template, channels, sources, exclusions, projects,
			status, recipient_count, stats, outcomes, created_at, updated_at
		) VALUES (
			:id, :name, :template, :channels, :sources, :exclusions, :projects,
			:status, :recipient_count, :stats, :outcomes, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)

	var row campaignRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("campaign", err)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return row.toModel()
}

func (r *campaignRepository) List(ctx context.Context, filters *model.CampaignFilters) ([]*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE 1=1`, campaignColumns)
	args := []interface{}{}

	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}
	query += " ORDER BY created_at, id"

	var rows []campaignRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	campaigns := make([]*model.Campaign, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// Update runs the mutator against a row locked with SELECT ... FOR UPDATE.
func (r *campaignRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*model.Campaign) error) (*model.Campaign, error) {
	var updated *model.Campaign
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1 FOR UPDATE`, campaignColumns)

		var row campaignRow
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if isNoRows(err) {
				return apperrors.NotFound("campaign", err)
			}
			return fmt.Errorf("failed to lock campaign: %w", err)
		}

		campaign, err := row.toModel()
		if err != nil {
			return err
		}
		if err := mutate(campaign); err != nil {
			return err
		}

		out, err := toRow(campaign)
		if err != nil {
			return fmt.Errorf("failed to encode campaign: %w", err)
		}

		_, err = tx.NamedExecContext(ctx, `
			UPDATE campaigns SET
				name = :name, template = :template, channels = :channels,
				sources = :sources, exclusions = :exclusions, projects = :projects,
				status = :status, recipient_count = :recipient_count,
				stats = :stats, outcomes = :outcomes, updated_at = :updated_at
			WHERE id = :id
		`, out)
		if err != nil {
			return fmt.Errorf("failed to update campaign: %w", err)
		}
		updated = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *campaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("campaign", nil)
	}
	return nil
}
