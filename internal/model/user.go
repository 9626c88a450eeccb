package model

import "strings"

// User is the slice of the identity system this service reads.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns "First Last", or the local part of the email when no name is on file.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
