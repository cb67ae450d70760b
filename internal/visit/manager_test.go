package visit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/model"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

func TestManagerOpenAndGet(t *testing.T) {
	m := NewManager(testDeps(nil, nil, nil), time.Minute, 0)

	o := m.Open(SessionContext{})
	got, err := m.Get(o.ID())
	require.NoError(t, err)
	assert.Same(t, o, got)
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := NewManager(testDeps(nil, nil, nil), time.Minute, 0)

	_, err := m.Get(uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.Code(err))
}

func TestManagerCloseDiscardsSession(t *testing.T) {
	m := NewManager(testDeps(nil, nil, nil), time.Minute, 0)
	o := m.Open(SessionContext{})

	m.Close(o.ID())

	_, err := m.Get(o.ID())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.Code(err))
}

func TestManagerExpiryDiscardsAbandonedDraft(t *testing.T) {
	m := NewManager(testDeps(nil, nil, nil), 50*time.Millisecond, 25*time.Millisecond)
	o := m.Open(SessionContext{})

	time.Sleep(80 * time.Millisecond)

	_, err := m.Get(o.ID())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.Code(err))
}

func TestManagerTouchExtendsSession(t *testing.T) {
	m := NewManager(testDeps(nil, nil, nil), 200*time.Millisecond, 50*time.Millisecond)
	o := m.Open(SessionContext{})

	time.Sleep(120 * time.Millisecond)
	m.Touch(o.ID())
	time.Sleep(120 * time.Millisecond)

	_, err := m.Get(o.ID())
	assert.NoError(t, err)
}

func TestManagerOpenForEditFailureRegistersNothing(t *testing.T) {
	db := &fakePersistence{getErr: errors.New("gone")}
	m := NewManager(testDeps(nil, nil, db), time.Minute, 0)

	o, err := m.OpenForEdit(context.Background(), SessionContext{}, uuid.New())
	assert.Nil(t, o)
	assert.Equal(t, apperrors.ErrRehydration, apperrors.Code(err))
}

func TestManagerOpenForEdit(t *testing.T) {
	visitID := uuid.New()
	db := &fakePersistence{visit: &model.Visit{
		Base:      model.Base{ID: visitID},
		PatientID: "P1",
		VisitType: model.VisitTypeNew,
		Symptoms:  "fever",
		Diagnosis: "flu",
	}}
	m := NewManager(testDeps(nil, nil, db), time.Minute, 0)

	o, err := m.OpenForEdit(context.Background(), SessionContext{}, visitID)
	require.NoError(t, err)

	got, err := m.Get(o.ID())
	require.NoError(t, err)
	assert.True(t, got.Snapshot().EditMode)
}
