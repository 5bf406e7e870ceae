package session

import "crypto/subtle"

// Credentials is the single username/password pair that opens the shell.
type Credentials struct {
	Username string
	Password string
}

// DefaultCredentials returns admin/password.
func DefaultCredentials() Credentials {
	return Credentials{Username: "admin", Password: "password"}
}

func (c Credentials) usernameMatches(s string) bool {
	return constantTimeEqual(c.Username, s)
}

func (c Credentials) passwordMatches(s string) bool {
	return constantTimeEqual(c.Password, s)
}

func constantTimeEqual(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
