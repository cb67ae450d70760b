package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

// catalogRepository serves the three reference catalogs from one table per
// kind. Table names are fixed at construction, never taken from input.
type catalogRepository struct {
	db *sqlx.DB
}

var catalogTables = map[model.CatalogKind]string{
	model.CatalogMedicines: "medicines",
	model.CatalogLabTests:  "lab_test_catalog",
	model.CatalogRayTests:  "ray_test_catalog",
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Search(ctx context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown catalog %q", kind), nil)
	}
	q = q.Normalized()

	countQuery := fmt.Sprintf(`
		SELECT count(*) FROM %s
		WHERE ($1 = '' OR label ILIKE '%%' || $1 || '%%')
	`, table)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, q.Filter); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}

	query := fmt.Sprintf(`
		SELECT id, label, code FROM %s
		WHERE ($1 = '' OR label ILIKE '%%' || $1 || '%%')
		ORDER BY label ASC
		LIMIT $2 OFFSET $3
	`, table)
	entries := []model.CatalogEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, q.Filter, q.PageSize, (q.Page-1)*q.PageSize); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", table, err)
	}

	return &model.CatalogPage{
		Entries:  entries,
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
	}, nil
}
