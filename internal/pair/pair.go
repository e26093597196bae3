// Package pair holds the identity types and document layout for one
// pair of partners. Authentication resolves who the current user is and
// which pair they belong to; this package only describes where a pair's
// data lives once those ids are known.
package pair

import "fmt"

// ID identifies one pair. Both partners share the same pair id.
type ID string

// UserID identifies one partner within a pair.
type UserID string

// Session is the boundary to the auth collaborator. The registry stores
// never resolve the current pair themselves; callers pull it from a
// Session and pass it in explicitly.
type Session interface {
	UserID() UserID
	PairID() ID
}

// SettingsDoc returns the path of a settings document for the pair,
// e.g. SettingsDoc("abc", "scheduleCategories") → "pairs/abc/settings/scheduleCategories".
func SettingsDoc(id ID, name string) string {
	return fmt.Sprintf("pairs/%s/settings/%s", id, name)
}

// Collection returns the path of a pair-scoped collection,
// e.g. Collection("abc", "schedules") → "pairs/abc/schedules".
func Collection(id ID, name string) string {
	return fmt.Sprintf("pairs/%s/%s", id, name)
}
