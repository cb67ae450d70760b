package visit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/catalog"
	"github.com/jwalitptl/visit-api/internal/model"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
	"github.com/jwalitptl/visit-api/pkg/logger"
)

// SessionState is the lifecycle state of one authoring session.
type SessionState string

const (
	// StateUnselected: no patient chosen yet, only patient selection works.
	StateUnselected SessionState = "unselected"
	// StateDrafting: editing enabled.
	StateDrafting SessionState = "drafting"
	// StateSubmitting: a submission is in flight, the form is read-only.
	StateSubmitting SessionState = "submitting"
	// StateSubmitted: terminal; the draft has been persisted and discarded.
	StateSubmitted SessionState = "submitted"
)

// Persistence is the external collaborator the orchestrator submits to and
// rehydrates from. Idempotency of retried submits is its responsibility.
type Persistence interface {
	CreateOrUpdate(ctx context.Context, dto *model.VisitDTO) (uuid.UUID, error)
	GetForEdit(ctx context.Context, id uuid.UUID) (*model.Visit, error)
}

// Deps are the collaborators an orchestrator needs.
type Deps struct {
	Patients    catalog.PatientResolver
	Catalogs    catalog.Resolver
	Persistence Persistence
	Logger      *logger.Logger

	// Debounce is the quiet period between search keystrokes and the
	// catalog query they trigger. Zero means the default 300ms.
	Debounce time.Duration
	// FetchTimeout bounds every background fetch the session issues.
	FetchTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Debounce == 0 {
		d.Debounce = 300 * time.Millisecond
	}
	if d.FetchTimeout == 0 {
		d.FetchTimeout = 10 * time.Second
	}
	if d.Logger == nil {
		d.Logger = logger.NewLogger(nil)
	}
	return d
}

// Orchestrator owns one VisitDraft for the lifetime of an authoring
// session. All mutation flows through it; sub-editors read the current
// snapshot and write back through the typed mutators. Every mutator
// replaces collections wholesale, so a snapshot handed out earlier is never
// changed under the caller.
type Orchestrator struct {
	mu sync.Mutex

	id      uuid.UUID
	deps    Deps
	sess    SessionContext
	state   SessionState
	draft   model.VisitDraft
	search  searchSession
	closed  bool
	visitID uuid.UUID // set on successful submit

	patientDetail     *model.PatientDetail
	patientDetailErr  bool
	patientDetailSeq  uint64
	submitFailure     string
	lastValidation    Errors
}

// NewSession opens a create-mode session with an empty draft.
func NewSession(deps Deps, sess SessionContext) *Orchestrator {
	return &Orchestrator{
		id:    uuid.New(),
		deps:  deps.withDefaults(),
		sess:  sess,
		state: StateUnselected,
		draft: model.VisitDraft{
			VisitType:   model.VisitTypeNew,
			Medications: []model.MedicationItem{},
			LabTests:    []model.LabTestItem{},
			Rays:        []model.RadiologyTestItem{},
			Attachments: []model.AttachmentItem{},
		},
	}
}

// NewEditSession opens an edit-mode session: the existing visit is fetched
// and the draft rehydrated wholesale before the session enters Drafting.
// If the fetch fails no session exists; the caller gets a rehydration
// failure.
func NewEditSession(ctx context.Context, deps Deps, sess SessionContext, visitID uuid.UUID) (*Orchestrator, error) {
	deps = deps.withDefaults()

	fetchCtx, cancel := context.WithTimeout(ctx, deps.FetchTimeout)
	defer cancel()

	v, err := deps.Persistence.GetForEdit(fetchCtx, visitID)
	if err != nil {
		return nil, apperrors.NewRehydration(err)
	}

	o := &Orchestrator{
		id:    uuid.New(),
		deps:  deps,
		sess:  sess,
		state: StateDrafting,
		draft: draftFromVisit(v),
	}
	o.fetchPatientDetail(v.PatientID)
	return o, nil
}

// draftFromVisit re-seeds every nested collection verbatim from the
// persisted record, under fresh client keys.
func draftFromVisit(v *model.Visit) model.VisitDraft {
	d := model.VisitDraft{
		VisitID:     v.ID,
		PatientID:   v.PatientID,
		VisitType:   v.VisitType,
		Symptoms:    v.Symptoms,
		Diagnosis:   v.Diagnosis,
		Notes:       v.Notes,
		Medications: make([]model.MedicationItem, 0, len(v.Medications)),
		LabTests:    make([]model.LabTestItem, 0, len(v.LabTests)),
		Rays:        make([]model.RadiologyTestItem, 0, len(v.Rays)),
		Attachments: make([]model.AttachmentItem, 0, len(v.Attachments)),
	}

	for _, m := range v.Medications {
		d.Medications = append(d.Medications, model.MedicationItem{
			ClientKey: NewClientKey(),
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Duration:  m.Duration,
			Notes:     m.Notes,
		})
	}
	for _, t := range v.LabTests {
		d.LabTests = append(d.LabTests, model.LabTestItem{
			ClientKey: NewClientKey(),
			CatalogID: t.CatalogID,
			TestName:  t.TestName,
			Notes:     t.Notes,
		})
	}
	for _, t := range v.Rays {
		d.Rays = append(d.Rays, model.RadiologyTestItem{
			ClientKey: NewClientKey(),
			CatalogID: t.CatalogID,
			TestName:  t.TestName,
			Notes:     t.Notes,
		})
	}
	if v.VisitType == model.VisitTypeDental {
		d.DentalProcedures = make([]model.DentalProcedureItem, 0, len(v.DentalProcedures))
		for _, p := range v.DentalProcedures {
			teeth := make([]string, len(p.Teeth))
			copy(teeth, p.Teeth)
			d.DentalProcedures = append(d.DentalProcedures, model.DentalProcedureItem{
				ClientKey: NewClientKey(),
				Teeth:     teeth,
				Type:      p.Type,
				Notes:     p.Notes,
			})
		}
	}
	for _, a := range v.Attachments {
		d.Attachments = append(d.Attachments, model.AttachmentItem{
			ClientKey: NewClientKey(),
			Name:      a.Name,
			Size:      a.Size,
			MimeType:  a.MimeType,
		})
	}
	return d
}

// ID returns the session identifier.
func (o *Orchestrator) ID() uuid.UUID { return o.id }

// Snapshot is a point-in-time copy of the session for rendering. It shares
// no mutable state with the orchestrator.
type Snapshot struct {
	SessionID     uuid.UUID            `json:"session_id"`
	State         SessionState         `json:"state"`
	EditMode      bool                 `json:"edit_mode"`
	Draft         model.VisitDraft     `json:"draft"`
	PatientDetail *model.PatientDetail `json:"patient_detail,omitempty"`
	DetailFailed  bool                 `json:"patient_detail_failed,omitempty"`
	Search        *SearchState         `json:"search,omitempty"`
	Validation    Errors               `json:"validation,omitempty"`
	SubmitFailure string               `json:"submit_failure,omitempty"`
	VisitID       uuid.UUID            `json:"visit_id,omitempty"`
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     o.id,
		State:         o.state,
		EditMode:      o.draft.EditMode(),
		Draft:         copyDraft(o.draft),
		DetailFailed:  o.patientDetailErr,
		Validation:    o.lastValidation,
		SubmitFailure: o.submitFailure,
		VisitID:       o.visitID,
	}
	if o.patientDetail != nil {
		detail := *o.patientDetail
		snap.PatientDetail = &detail
	}
	if o.search.open {
		st := o.search.state()
		snap.Search = &st
	}
	return snap
}

func copyDraft(d model.VisitDraft) model.VisitDraft {
	out := d
	out.Medications = append([]model.MedicationItem(nil), d.Medications...)
	out.LabTests = append([]model.LabTestItem(nil), d.LabTests...)
	out.Rays = append([]model.RadiologyTestItem(nil), d.Rays...)
	out.Attachments = append([]model.AttachmentItem(nil), d.Attachments...)
	if d.DentalProcedures != nil {
		out.DentalProcedures = append([]model.DentalProcedureItem(nil), d.DentalProcedures...)
	}
	return out
}

// editable guards every mutator: the form is locked while a submission is
// in flight and after it succeeds.
func (o *Orchestrator) editable() error {
	switch o.state {
	case StateSubmitting:
		return apperrors.NewConflict("a submission is in flight", nil)
	case StateSubmitted:
		return apperrors.NewConflict("session already submitted", nil)
	case StateUnselected:
		return apperrors.NewConflict("select a patient first", nil)
	}
	return nil
}

// SelectPatient moves the session from Unselected to Drafting and kicks off
// the denormalized-detail fetch in the background. The fetch is independent
// of form validity: the clinician can start typing before it lands.
func (o *Orchestrator) SelectPatient(patientID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.draft.EditMode() {
		return apperrors.NewConflict("patient is fixed in edit mode", nil)
	}
	if o.state != StateUnselected {
		return apperrors.NewConflict("patient already selected", nil)
	}
	if patientID == "" {
		return apperrors.NewBadRequest("patient id is required", nil)
	}

	o.draft.PatientID = patientID
	o.state = StateDrafting
	o.fetchPatientDetail(patientID)
	return nil
}

// fetchPatientDetail issues the async detail lookup. Results are applied
// only if no newer fetch was issued meanwhile. Callers hold no expectation
// of ordering against form edits.
func (o *Orchestrator) fetchPatientDetail(patientID string) {
	o.patientDetailSeq++
	seq := o.patientDetailSeq
	o.patientDetail = nil
	o.patientDetailErr = false

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.deps.FetchTimeout)
		defer cancel()

		detail, err := o.deps.Patients.GetPatientDetail(ctx, patientID)

		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed || seq != o.patientDetailSeq {
			return
		}
		if err != nil {
			o.patientDetailErr = true
			o.deps.Logger.Error(err, "patient detail fetch failed", "patient_id", patientID)
			return
		}
		o.patientDetail = detail
	}()
}

// SelectVisitType switches the visit type. Moving away from Dental discards
// any entered dental procedures; the count of discarded rows is returned so
// the client can warn. Switching back starts from an empty collection.
func (o *Orchestrator) SelectVisitType(t model.VisitType) (discarded int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return 0, err
	}
	if !t.Valid() {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("unrecognized visit type %q", t), nil)
	}

	if o.draft.VisitType == model.VisitTypeDental && t != model.VisitTypeDental {
		discarded = len(o.draft.DentalProcedures)
		o.draft.DentalProcedures = nil
	}
	if t == model.VisitTypeDental && o.draft.DentalProcedures == nil {
		o.draft.DentalProcedures = []model.DentalProcedureItem{}
	}
	o.draft.VisitType = t
	return discarded, nil
}

// UpdateScalars applies blur-time edits to the scalar fields and re-checks
// them eagerly. Nil pointers leave the field untouched.
func (o *Orchestrator) UpdateScalars(req model.UpdateScalarsRequest) (Errors, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return nil, err
	}

	fieldErrs := Errors{}
	if req.Symptoms != nil {
		o.draft.Symptoms = *req.Symptoms
		if msg, bad := ValidateScalar(&o.draft, "symptoms"); bad {
			fieldErrs["symptoms"] = msg
		}
	}
	if req.Diagnosis != nil {
		o.draft.Diagnosis = *req.Diagnosis
		if msg, bad := ValidateScalar(&o.draft, "diagnosis"); bad {
			fieldErrs["diagnosis"] = msg
		}
	}
	if req.Notes != nil {
		o.draft.Notes = *req.Notes
	}
	return fieldErrs, nil
}

// AddItem appends a default-shaped item to the named collection.
func (o *Orchestrator) AddItem(kind model.CollectionKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}

	switch kind {
	case model.CollectionMedications:
		o.draft.Medications = Add(o.draft.Medications, model.MedicationItem{})
	case model.CollectionLabTests:
		o.draft.LabTests = Add(o.draft.LabTests, model.LabTestItem{})
	case model.CollectionRays:
		o.draft.Rays = Add(o.draft.Rays, model.RadiologyTestItem{})
	case model.CollectionDental:
		if o.draft.VisitType != model.VisitTypeDental {
			return apperrors.NewConflict("dental procedures need a dental visit", nil)
		}
		o.draft.DentalProcedures = Add(o.draft.DentalProcedures, model.DentalProcedureItem{})
	default:
		return apperrors.NewBadRequest(fmt.Sprintf("unknown collection %q", kind), nil)
	}
	return nil
}

// RemoveItem excises the item at index from the named collection. An
// out-of-range index leaves the collection untouched.
func (o *Orchestrator) RemoveItem(kind model.CollectionKind, index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}

	switch kind {
	case model.CollectionMedications:
		o.draft.Medications = RemoveAt(o.draft.Medications, index)
	case model.CollectionLabTests:
		o.draft.LabTests = RemoveAt(o.draft.LabTests, index)
	case model.CollectionRays:
		o.draft.Rays = RemoveAt(o.draft.Rays, index)
	case model.CollectionDental:
		o.draft.DentalProcedures = RemoveAt(o.draft.DentalProcedures, index)
	case model.CollectionAttachments:
		o.draft.Attachments = RemoveAt(o.draft.Attachments, index)
	default:
		return apperrors.NewBadRequest(fmt.Sprintf("unknown collection %q", kind), nil)
	}
	return nil
}

// PatchMedication shallow-merges the patch into the medication at index.
func (o *Orchestrator) PatchMedication(index int, req model.PatchMedicationRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(o.draft.Medications) {
		return apperrors.NewBadRequest("medication index out of range", nil)
	}

	o.draft.Medications = ReplaceAt(o.draft.Medications, index, func(m model.MedicationItem) model.MedicationItem {
		if req.CatalogID != nil {
			m.CatalogID = *req.CatalogID
		}
		if req.Name != nil {
			m.Name = *req.Name
		}
		if req.Dosage != nil {
			m.Dosage = *req.Dosage
		}
		if req.Frequency != nil {
			m.Frequency = *req.Frequency
		}
		if req.Duration != nil {
			m.Duration = *req.Duration
		}
		if req.Notes != nil {
			m.Notes = *req.Notes
		}
		return m
	})
	return nil
}

// PatchTest updates the notes of a lab or radiology test row.
func (o *Orchestrator) PatchTest(kind model.CollectionKind, index int, req model.PatchTestRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}

	switch kind {
	case model.CollectionLabTests:
		if index < 0 || index >= len(o.draft.LabTests) {
			return apperrors.NewBadRequest("lab test index out of range", nil)
		}
		o.draft.LabTests = ReplaceAt(o.draft.LabTests, index, func(t model.LabTestItem) model.LabTestItem {
			if req.Notes != nil {
				t.Notes = *req.Notes
			}
			return t
		})
	case model.CollectionRays:
		if index < 0 || index >= len(o.draft.Rays) {
			return apperrors.NewBadRequest("ray test index out of range", nil)
		}
		o.draft.Rays = ReplaceAt(o.draft.Rays, index, func(t model.RadiologyTestItem) model.RadiologyTestItem {
			if req.Notes != nil {
				t.Notes = *req.Notes
			}
			return t
		})
	default:
		return apperrors.NewBadRequest(fmt.Sprintf("collection %q is not a test collection", kind), nil)
	}
	return nil
}

// PatchDentalProcedure shallow-merges the patch into the procedure at index.
func (o *Orchestrator) PatchDentalProcedure(index int, req model.PatchDentalProcedureRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}
	if o.draft.VisitType != model.VisitTypeDental {
		return apperrors.NewConflict("dental procedures need a dental visit", nil)
	}
	if index < 0 || index >= len(o.draft.DentalProcedures) {
		return apperrors.NewBadRequest("dental procedure index out of range", nil)
	}

	o.draft.DentalProcedures = ReplaceAt(o.draft.DentalProcedures, index, func(p model.DentalProcedureItem) model.DentalProcedureItem {
		if req.Teeth != nil {
			p.Teeth = append([]string(nil), (*req.Teeth)...)
		}
		if req.Type != nil {
			p.Type = *req.Type
		}
		if req.Notes != nil {
			p.Notes = *req.Notes
		}
		return p
	})
	return nil
}

// AddAttachment registers a client-local file reference on the draft.
func (o *Orchestrator) AddAttachment(req model.AddAttachmentRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editable(); err != nil {
		return err
	}

	o.draft.Attachments = Add(o.draft.Attachments, model.AttachmentItem{
		Name:     req.Name,
		Size:     req.Size,
		MimeType: req.MimeType,
		LocalURL: req.LocalURL,
	})
	return nil
}

// Submit validates the whole draft and, if clean, assembles and persists
// it. On validation failure the session stays in Drafting and the error map
// is returned. On persistence failure the draft survives intact for retry.
func (o *Orchestrator) Submit(ctx context.Context) (uuid.UUID, Errors, error) {
	o.mu.Lock()
	if o.state != StateDrafting {
		state := o.state
		o.mu.Unlock()
		return uuid.Nil, nil, apperrors.NewConflict(fmt.Sprintf("cannot submit in state %q", state), nil)
	}

	errs := Validate(&o.draft)
	o.lastValidation = errs
	if !errs.Empty() {
		o.mu.Unlock()
		return uuid.Nil, errs, nil
	}

	o.state = StateSubmitting
	o.submitFailure = ""
	dto := Assemble(&o.draft, o.sess)
	o.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(ctx, o.deps.FetchTimeout)
	defer cancel()

	id, err := o.deps.Persistence.CreateOrUpdate(submitCtx, dto)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.state = StateDrafting
		o.submitFailure = "submission failed, draft retained"
		o.deps.Logger.Error(err, "visit submission failed",
			"session_id", o.id.String(), "patient_id", o.draft.PatientID)
		return uuid.Nil, nil, apperrors.NewSubmission(err)
	}

	o.state = StateSubmitted
	o.visitID = id
	o.closeSearchLocked()
	o.deps.Logger.Info("visit submitted",
		"session_id", o.id.String(), "visit_id", id.String(), "edit_mode", o.draft.EditMode())
	return id, nil, nil
}

// Close discards the session. The draft is gone; there is no autosave.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.closeSearchLocked()
}
