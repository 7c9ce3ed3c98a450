package domain

// Identity is a participant as asserted by the bearer credential.
type Identity struct {
	ID   string
	Name string
}

// IsZero reports whether the identity carries no user id.
func (i Identity) IsZero() bool {
	return i.ID == ""
}
