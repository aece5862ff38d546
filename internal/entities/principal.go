package entities

// Principal is the authenticated identity behind a request, as resolved by
// the session layer in front of this service.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
