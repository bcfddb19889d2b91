package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evote/internal/errs"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/ports"
)

// OrgRepository serves the org-hierarchy lookup from the subunits table.
type OrgRepository struct {
	db *gorm.DB
}

var _ ports.OrgDirectory = (*OrgRepository)(nil)

func NewOrgRepository(db *gorm.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

func (r *OrgRepository) ResolveSubunitNames(ctx context.Context, subunitIDs []string) ([]string, error) {
	if len(subunitIDs) == 0 {
		return nil, nil
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := db.Model(&model.Subunit{}).
		Where("subunit_id IN ?", subunitIDs).
		Order("name asc").
		Pluck("name", &names).Error; err != nil {
		return nil, errs.Wrap(err, "resolve subunit names")
	}
	return names, nil
}

func (r *OrgRepository) UpsertSubunit(ctx context.Context, subunit ports.Subunit) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Subunit{
		SubunitID: strings.TrimSpace(subunit.SubunitID),
		Unit:      strings.TrimSpace(subunit.Unit),
		Name:      strings.TrimSpace(subunit.Name),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subunit_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"unit": row.Unit,
			"name": row.Name,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert subunit")
	}
	return nil
}
