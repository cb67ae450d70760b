package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			id, clinic_id, clinician_id, patient_id, visit_type,
			symptoms, diagnosis, notes, medications, lab_tests, rays,
			dental_procedures, attachments, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`
	visit.CreatedAt = time.Now()
	visit.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.ClinicID,
		visit.ClinicianID,
		visit.PatientID,
		visit.VisitType,
		visit.Symptoms,
		visit.Diagnosis,
		visit.Notes,
		visit.MedicationsJSON,
		visit.LabTestsJSON,
		visit.RaysJSON,
		visit.DentalJSON,
		visit.AttachmentsJSON,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	query := `
		UPDATE visits SET
			patient_id = $1, visit_type = $2, symptoms = $3, diagnosis = $4,
			notes = $5, medications = $6, lab_tests = $7, rays = $8,
			dental_procedures = $9, attachments = $10, updated_at = $11
		WHERE id = $12 AND deleted_at IS NULL
	`
	visit.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		visit.PatientID,
		visit.VisitType,
		visit.Symptoms,
		visit.Diagnosis,
		visit.Notes,
		visit.MedicationsJSON,
		visit.LabTestsJSON,
		visit.RaysJSON,
		visit.DentalJSON,
		visit.AttachmentsJSON,
		visit.UpdatedAt,
		visit.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFound("visit", nil)
	}
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query := `SELECT * FROM visits WHERE id = $1 AND deleted_at IS NULL`
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("visit", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

func (r *visitRepository) ListForPatient(ctx context.Context, patientID string, p model.Pagination) ([]*model.Visit, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	query := `
		SELECT * FROM visits
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, patientID, p.PageSize, (p.Page-1)*p.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
