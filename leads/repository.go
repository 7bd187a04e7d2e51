package leads

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Filter narrows List results. Zero fields are ignored.
type Filter struct {
	Status     Status
	AssignedTo uuid.UUID
	Source     Source
}

// Repository persists leads.
type Repository struct {
	repository.Repository[*Lead]
	db *bun.DB
}

// NewRepository wires the lead store over a bun DB handle.
func NewRepository(db *bun.DB) *Repository {
	repo := repository.NewRepository[*Lead](db, repository.ModelHandlers[*Lead]{
		NewRecord: func() *Lead { return &Lead{} },
		GetID: func(l *Lead) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *Lead, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &Repository{
		Repository: repo,
		db:         db,
	}
}

// Create validates and persists a new lead; new leads start in StatusNew.
func (r *Repository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	if lead.Status == "" {
		lead.Status = StatusNew
	}

	if err := lead.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid lead payload")
	}

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}

	return r.Repository.CreateTx(ctx, r.db, lead)
}

// Get fetches one lead by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Lead, error) {
	record := &Lead{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

// List returns leads newest first, applying any filter fields set.
func (r *Repository) List(ctx context.Context, filter Filter) ([]*Lead, error) {
	var records []*Lead

	q := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC")

	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}
	if filter.AssignedTo != uuid.Nil {
		q = q.Where("?TableAlias.assigned_to = ?", filter.AssignedTo.String())
	}
	if filter.Source != "" {
		q = q.Where("?TableAlias.source = ?", filter.Source)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

// Save writes the full record back.
func (r *Repository) Save(ctx context.Context, lead *Lead) (*Lead, error) {
	now := time.Now()
	lead.UpdatedAt = &now

	res, err := r.db.NewUpdate().
		Model(lead).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": lead.ID.String()})
	}

	return lead, nil
}

// Assign hands the lead to a sales rep.
func (r *Repository) Assign(ctx context.Context, id, userID uuid.UUID) (*Lead, error) {
	lead, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lead.AssignedTo = &userID
	return r.Save(ctx, lead)
}

// UpdateStatus moves the lead through the pipeline, stamping last-contacted
// when it transitions to contacted.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Lead, error) {
	if !status.IsValid() {
		return nil, errors.New("unknown lead status", errors.CategoryValidation).
			WithMetadata(map[string]any{"status": string(status)})
	}

	lead, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lead.Status = status
	if status == StatusContacted {
		now := time.Now()
		lead.LastContacted = &now
	}

	return r.Save(ctx, lead)
}

// Delete removes a lead.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Lead)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	return err
}
