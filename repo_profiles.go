package identity

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"context"
)

// Profiles is the durable profile repository. Provision is the first-login
// path: it inserts the default row when none exists and is safe to call
// concurrently for the same user id.
type Profiles interface {
	repository.Repository[*Profile]

	GetByUserID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
	Provision(ctx context.Context, id uuid.UUID) (*Profile, error)
	ProvisionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (r *profiles) GetByUserID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.GetByUserIDTx(ctx, r.db, id)
}

func (r *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record := &Profile{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *profiles) Provision(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.ProvisionTx(ctx, r.db, id)
}

func (r *profiles) ProvisionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record, err := r.GetByUserIDTx(ctx, tx, id)
	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	created, err := r.Repository.CreateTx(ctx, tx, NewDefaultProfile(id))
	if err == nil {
		return created, nil
	}

	// A concurrent provisioner may have won the insert; re-read before
	// reporting the failure so the operation stays idempotent.
	if record, getErr := r.GetByUserIDTx(ctx, tx, id); getErr == nil {
		return record, nil
	}

	return nil, err
}
