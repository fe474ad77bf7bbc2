package coupon

import "strings"

const (
	userKeyPrefix  = "user:"
	guestKeyPrefix = "guest:"
)

// Actor identifies who is redeeming. An authenticated actor has a UserID; a
// guest is identified by a server-issued session id. Both forms count usage
// through the same ledger aggregation.
type Actor struct {
	UserID         string
	GuestSessionID string
}

// Authenticated reports whether the actor is a signed-in user.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// Key returns the ledger key for the actor: "user:<id>" when authenticated,
// otherwise "guest:<session>". Empty when neither is known.
func (a Actor) Key() string {
	switch {
	case a.UserID != "":
		return UserKey(a.UserID)
	case a.GuestSessionID != "":
		return GuestKey(a.GuestSessionID)
	default:
		return ""
	}
}

// UserKey returns the ledger key of a signed-in user.
func UserKey(userID string) string {
	return userKeyPrefix + userID
}

// GuestKey returns the ledger key of a guest session.
func GuestKey(sessionID string) string {
	return guestKeyPrefix + sessionID
}

// IsGuestKey reports whether key belongs to a guest session.
func IsGuestKey(key string) bool {
	return strings.HasPrefix(key, guestKeyPrefix)
}
