package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/model"
)

// All repository interfaces in one file
type (
	// VisitRepository is the persistence boundary for submitted visits.
	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit) error
		Update(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		ListForPatient(ctx context.Context, patientID string, p model.Pagination) ([]*model.Visit, error)
	}

	// PatientRepository backs the patient directory lookups.
	PatientRepository interface {
		Search(ctx context.Context, clinicID uuid.UUID, nameFilter string) ([]model.PatientSummary, error)
		GetDetail(ctx context.Context, id string) (*model.PatientDetail, error)
	}

	// CatalogRepository serves paged reference-catalog searches.
	CatalogRepository interface {
		Search(ctx context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error)
	}

	// Tx is the unit of work BeginTx hands back; *sql.Tx satisfies it.
	Tx interface {
		Commit() error
		Rollback() error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		BeginTx(ctx context.Context) (Tx, error)
		UpdateStatusTx(ctx context.Context, tx Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
