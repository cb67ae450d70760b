package visit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/email"
	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	"github.com/jwalitptl/visit-api/pkg/logger"
	"github.com/jwalitptl/visit-api/pkg/security"
)

// Service is the persistence collaborator behind visit submission. It
// stores nested collections as JSONB, encrypts clinical free text at rest,
// and writes an outbox event for every accepted submission.
type Service struct {
	repo       repository.VisitRepository
	outboxRepo repository.OutboxRepository
	encryptor  security.Encryptor
	notifier   email.Service
	logger     *logger.Logger
}

func NewService(repo repository.VisitRepository, outboxRepo repository.OutboxRepository, encryptor security.Encryptor, notifier email.Service, logger *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		outboxRepo: outboxRepo,
		encryptor:  encryptor,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateOrUpdate persists the composite submission. The presence of an id
// on the DTO selects update over create. Retried submits are the caller's
// concern; this method is a plain write.
func (s *Service) CreateOrUpdate(ctx context.Context, dto *model.VisitDTO) (uuid.UUID, error) {
	if dto == nil {
		return uuid.Nil, fmt.Errorf("submission cannot be nil")
	}

	visit, err := s.visitFromDTO(dto)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid submission: %w", err)
	}

	eventType := model.EventVisitCreate
	if dto.ID != nil {
		eventType = model.EventVisitUpdate
		visit.ID = *dto.ID
		if err := s.repo.Update(ctx, visit); err != nil {
			return uuid.Nil, fmt.Errorf("failed to update visit: %w", err)
		}
	} else {
		visit.ID = uuid.New()
		if err := s.repo.Create(ctx, visit); err != nil {
			return uuid.Nil, fmt.Errorf("failed to create visit: %w", err)
		}
	}

	s.writeOutboxEvent(ctx, eventType, visit.ID, dto)
	s.notify(ctx, visit.ID, dto)

	return visit.ID, nil
}

// GetForEdit loads a persisted visit and decodes every nested collection so
// the orchestrator can rehydrate a draft from it.
func (s *Service) GetForEdit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}

	if visit.Symptoms, err = s.decryptField(visit.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to decrypt symptoms: %w", err)
	}
	if visit.Diagnosis, err = s.decryptField(visit.Diagnosis); err != nil {
		return nil, fmt.Errorf("failed to decrypt diagnosis: %w", err)
	}

	if err := s.unmarshalCollections(visit); err != nil {
		return nil, fmt.Errorf("failed to decode visit collections: %w", err)
	}
	return visit, nil
}

// ListForPatient returns a patient's visit history, newest first, with the
// same decryption and collection decoding as GetForEdit.
func (s *Service) ListForPatient(ctx context.Context, patientID string, p model.Pagination) ([]*model.Visit, error) {
	visits, err := s.repo.ListForPatient(ctx, patientID, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	for _, visit := range visits {
		if visit.Symptoms, err = s.decryptField(visit.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to decrypt symptoms: %w", err)
		}
		if visit.Diagnosis, err = s.decryptField(visit.Diagnosis); err != nil {
			return nil, fmt.Errorf("failed to decrypt diagnosis: %w", err)
		}
		if err := s.unmarshalCollections(visit); err != nil {
			return nil, fmt.Errorf("failed to decode visit collections: %w", err)
		}
	}
	return visits, nil
}

func (s *Service) visitFromDTO(dto *model.VisitDTO) (*model.Visit, error) {
	visit := &model.Visit{
		ClinicID:    dto.ClinicID,
		ClinicianID: dto.ClinicianID,
		PatientID:   dto.PatientID,
		VisitType:   dto.VisitType,
		Notes:       dto.Notes,
	}

	var err error
	if visit.Symptoms, err = s.encryptField(dto.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to encrypt symptoms: %w", err)
	}
	if visit.Diagnosis, err = s.encryptField(dto.Diagnosis); err != nil {
		return nil, fmt.Errorf("failed to encrypt diagnosis: %w", err)
	}

	if visit.MedicationsJSON, err = json.Marshal(dto.Medications); err != nil {
		return nil, err
	}
	if visit.LabTestsJSON, err = json.Marshal(dto.LabTests); err != nil {
		return nil, err
	}
	if visit.RaysJSON, err = json.Marshal(dto.Rays); err != nil {
		return nil, err
	}
	if dto.DentalProcedures != nil {
		if visit.DentalJSON, err = json.Marshal(dto.DentalProcedures); err != nil {
			return nil, err
		}
	} else {
		visit.DentalJSON = []byte("[]")
	}
	if visit.AttachmentsJSON, err = json.Marshal(dto.Attachments); err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) unmarshalCollections(visit *model.Visit) error {
	if len(visit.MedicationsJSON) > 0 {
		if err := json.Unmarshal(visit.MedicationsJSON, &visit.Medications); err != nil {
			return err
		}
	}
	if len(visit.LabTestsJSON) > 0 {
		if err := json.Unmarshal(visit.LabTestsJSON, &visit.LabTests); err != nil {
			return err
		}
	}
	if len(visit.RaysJSON) > 0 {
		if err := json.Unmarshal(visit.RaysJSON, &visit.Rays); err != nil {
			return err
		}
	}
	if len(visit.DentalJSON) > 0 {
		if err := json.Unmarshal(visit.DentalJSON, &visit.DentalProcedures); err != nil {
			return err
		}
	}
	if len(visit.AttachmentsJSON) > 0 {
		if err := json.Unmarshal(visit.AttachmentsJSON, &visit.Attachments); err != nil {
			return err
		}
	}
	return nil
}

// encryptField seals clinical free text and base64-encodes it for the text
// column. A nil encryptor stores plaintext, for deployments that handle
// encryption at the storage layer.
func (s *Service) encryptField(value string) (string, error) {
	if s.encryptor == nil || value == "" {
		return value, nil
	}
	sealed, err := s.encryptor.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Service) decryptField(value string) (string, error) {
	if s.encryptor == nil || value == "" {
		return value, nil
	}
	sealed, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	plain, err := s.encryptor.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *Service) writeOutboxEvent(ctx context.Context, eventType string, visitID uuid.UUID, dto *model.VisitDTO) {
	payload, err := json.Marshal(map[string]interface{}{
		"visit_id":     visitID,
		"patient_id":   dto.PatientID,
		"clinic_id":    dto.ClinicID,
		"clinician_id": dto.ClinicianID,
		"visit_type":   dto.VisitType,
		"submitted_at": time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal visit event", "visit_id", visitID.String())
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		// The visit itself is persisted; a missed event is logged, not fatal.
		s.logger.Error(err, "failed to create outbox event", "visit_id", visitID.String())
	}
}

func (s *Service) notify(ctx context.Context, visitID uuid.UUID, dto *model.VisitDTO) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendVisitSubmitted(ctx, dto.PatientID, visitID.String()); err != nil {
		s.logger.Error(err, "failed to send visit notification", "visit_id", visitID.String())
	}
}
