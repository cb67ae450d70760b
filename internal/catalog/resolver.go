package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/model"
)

// Resolver is the paged search interface over one family of reference
// catalogs (medicines, lab tests, radiology tests). Implementations own the
// wire format; callers only see catalog entries.
type Resolver interface {
	Search(ctx context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error)
}

// PatientResolver looks patients up in the clinic directory. The detail
// fetch may be slower than the search and must not block search display.
type PatientResolver interface {
	SearchPatients(ctx context.Context, clinicID uuid.UUID, nameFilter string) ([]model.PatientSummary, error)
	GetPatientDetail(ctx context.Context, id string) (*model.PatientDetail, error)
}
