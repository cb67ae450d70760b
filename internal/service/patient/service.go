package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

// Service backs the patient directory lookups of the visit form: the
// picker search and the denormalized detail block.
type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) SearchPatients(ctx context.Context, clinicID uuid.UUID, nameFilter string) ([]model.PatientSummary, error) {
	if clinicID == uuid.Nil {
		return nil, apperrors.NewBadRequest("clinic id is required", nil)
	}
	summaries, err := s.repo.Search(ctx, clinicID, nameFilter)
	if err != nil {
		return nil, apperrors.NewReferenceLookup("patient directory", fmt.Errorf("search: %w", err))
	}
	return summaries, nil
}

func (s *Service) GetPatientDetail(ctx context.Context, id string) (*model.PatientDetail, error) {
	if id == "" {
		return nil, apperrors.NewBadRequest("patient id is required", nil)
	}
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrNotFound {
			return nil, err
		}
		return nil, apperrors.NewReferenceLookup("patient directory", fmt.Errorf("detail: %w", err))
	}
	return detail, nil
}
