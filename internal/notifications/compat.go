package notifications

import "fmt"

// typeFallbacks maps each newer notification type onto an older one that any
// deployed schema version understands. The chain is static so downstream
// consumers can still approximately interpret rows written during a rolling
// migration; bug_reported and general are the roots and exist since the
// first migration.
var typeFallbacks = map[Type]Type{
	TypeBugVerified:      TypeBugFixed,
	TypeBugFixed:         TypeGeneral,
	TypeTaskAssigned:     TypeProjectUpdate,
	TypeMeetingScheduled: TypeProjectUpdate,
	TypeDocumentShared:   TypeProjectUpdate,
	TypeProjectUpdate:    TypeGeneral,
	TypeProjectCreated:   TypeGeneral,
	TypeBugReported:      TypeGeneral,
}

// TypeCompat resolves preferred types against the set of values the live
// schema accepts. The accepted set is loaded once at startup, not probed per
// call.
type TypeCompat struct {
	accepted map[Type]struct{}
}

// NewTypeCompat builds a TypeCompat from the accepted enum values.
func NewTypeCompat(accepted []Type) *TypeCompat {
	set := make(map[Type]struct{}, len(accepted))
	for _, t := range accepted {
		set[t] = struct{}{}
	}
	return &TypeCompat{accepted: set}
}

// Resolve returns the preferred type when the schema accepts it, otherwise
// the nearest accepted fallback. Resolution is deterministic per
// preferred/fallback pair. An exhausted chain is a configuration error.
func (c *TypeCompat) Resolve(preferred Type) (Type, error) {
	t := preferred
	for i := 0; i <= len(typeFallbacks); i++ {
		if _, ok := c.accepted[t]; ok {
			return t, nil
		}
		next, ok := typeFallbacks[t]
		if !ok {
			break
		}
		t = next
	}
	return "", fmt.Errorf("notifications: no accepted fallback for type %q", preferred)
}
