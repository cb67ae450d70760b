package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
)

// Manager tracks live authoring sessions by id. Sessions are held with a
// TTL: an abandoned draft is discarded when it expires, matching the
// no-autosave contract. Expiry closes the session so in-flight fetches
// stop applying.
type Manager struct {
	deps     Deps
	sessions *gocache.Cache
}

func NewManager(deps Deps, ttl, cleanupInterval time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	c := gocache.New(ttl, cleanupInterval)
	c.OnEvicted(func(_ string, v interface{}) {
		if o, ok := v.(*Orchestrator); ok {
			o.Close()
		}
	})
	return &Manager{deps: deps, sessions: c}
}

// Open starts a create-mode session.
func (m *Manager) Open(sess SessionContext) *Orchestrator {
	o := NewSession(m.deps, sess)
	m.sessions.SetDefault(o.ID().String(), o)
	return o
}

// OpenForEdit starts an edit-mode session against an existing visit. A
// failed rehydration means no session is registered at all.
func (m *Manager) OpenForEdit(ctx context.Context, sess SessionContext, visitID uuid.UUID) (*Orchestrator, error) {
	o, err := NewEditSession(ctx, m.deps, sess, visitID)
	if err != nil {
		return nil, err
	}
	m.sessions.SetDefault(o.ID().String(), o)
	return o, nil
}

// Get returns the live session or a not-found error once it expired or was
// closed.
func (m *Manager) Get(id uuid.UUID) (*Orchestrator, error) {
	v, ok := m.sessions.Get(id.String())
	if !ok {
		return nil, apperrors.NewNotFound("draft session", nil)
	}
	return v.(*Orchestrator), nil
}

// Close discards a session explicitly, successful or not.
func (m *Manager) Close(id uuid.UUID) {
	if v, ok := m.sessions.Get(id.String()); ok {
		v.(*Orchestrator).Close()
	}
	m.sessions.Delete(id.String())
}

// Touch extends the TTL of an active session on each interaction.
func (m *Manager) Touch(id uuid.UUID) {
	if v, ok := m.sessions.Get(id.String()); ok {
		m.sessions.SetDefault(id.String(), v)
	}
}
