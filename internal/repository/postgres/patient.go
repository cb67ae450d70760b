package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Search(ctx context.Context, clinicID uuid.UUID, nameFilter string) ([]model.PatientSummary, error) {
	query := `
		SELECT id, name || ' (' || patient_number || ')' AS label
		FROM patients
		WHERE clinic_id = $1 AND deleted_at IS NULL
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name ASC
		LIMIT 50
	`
	summaries := []model.PatientSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, clinicID, nameFilter); err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return summaries, nil
}

func (r *patientRepository) GetDetail(ctx context.Context, id string) (*model.PatientDetail, error) {
	query := `
		SELECT id, name,
		       date_part('year', age(date_of_birth))::int AS age,
		       blood_type, phone, patient_number
		FROM patients
		WHERE id = $1 AND deleted_at IS NULL
	`
	var detail model.PatientDetail
	err := r.db.GetContext(ctx, &detail, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient detail: %w", err)
	}
	return &detail, nil
}
