package visit

import "github.com/google/uuid"

// NewClientKey returns a session-local identifier for one collection item.
// Keys address rows while a draft is being edited; the persistence boundary
// never sees them and must never treat them as entity identity.
func NewClientKey() string {
	return uuid.NewString()
}
