package models

import (
	"fmt"
	"strings"
)

// User is an identity signed in through the OAuth provider.
type User struct {
	base
	subject  string
	email    string
	name     string
	token    string // serialized OAuth token
	signedIn bool
}

// NewUser creates a [User] for the provider subject.
func NewUser(sequence int, subject, email, name string) *User {
	return &User{base: newBase(sequence), subject: subject, email: email, name: name}
}

func (u *User) Subject() string    { return u.subject }
func (u *User) Email() string      { return u.email }
func (u *User) Name() string       { return u.name }
func (u *User) Token() string      { return u.token }
func (u *User) SignedIn() bool     { return u.signedIn }
func (u *User) SetEmail(e string)  { u.email = e }
func (u *User) SetName(n string)   { u.name = n }
func (u *User) SetToken(t string)  { u.token = t }
func (u *User) SetSignedIn(s bool) { u.signedIn = s }

// DisplayName prefers the profile name and falls back to the email address.
func (u *User) DisplayName() string {
	if u.name != "" {
		return u.name
	}
	return u.email
}

// Validate checks required identity fields.
func (u *User) Validate() error {
	if strings.TrimSpace(u.subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(u.email) == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}
