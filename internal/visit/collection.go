package visit

// Item is implemented by every repeatable collection entry of a draft. The
// constraint lets the same mutation helpers serve medications, lab tests,
// radiology tests, dental procedures and attachments without duplicating
// the add/remove/replace pattern per kind.
type Item[T any] interface {
	Key() string
	WithKey(string) T
}

// Add appends item to the collection under a freshly generated client key
// and returns the new collection. The input slice is never mutated; callers
// replace their held reference.
func Add[T Item[T]](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item.WithKey(NewClientKey()))
}

// RemoveAt returns a new collection with the item at index excised.
// Insertion order of the surviving items is preserved. An out-of-range
// index is a no-op: the returned collection equals the input.
func RemoveAt[T Item[T]](items []T, index int) []T {
	if index < 0 || index >= len(items) {
		return items
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...)
}

// ReplaceAt returns a new collection with the item at index replaced by
// patch applied to a copy of it. The item keeps its client key regardless
// of what patch does. An out-of-range index is a no-op.
func ReplaceAt[T Item[T]](items []T, index int, patch func(T) T) []T {
	if index < 0 || index >= len(items) {
		return items
	}
	out := make([]T, len(items))
	copy(out, items)
	key := out[index].Key()
	out[index] = patch(out[index]).WithKey(key)
	return out
}
