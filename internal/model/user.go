package model

// User is the identity established by the Google login flow and carried in
// the session cookie.  It is never persisted; profiles are stored separately.
//
// Fields:
//  ID      – Google account subject identifier.
//  Email   – verified account email; used as the owner key for events,
//            reservations and profiles.
//  Name    – display name.
//  Picture – avatar URL.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}
