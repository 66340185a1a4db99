package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterInput is the registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// normalize trims name and email. The password is kept verbatim.
func (in RegisterInput) normalize() RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// validate checks every field independently and reports all failures at once.
func (in RegisterInput) validate() error {
	verr := &ValidationError{}
	if utf8.RuneCountInString(in.Name) < minNameLength {
		verr.add("name", "Name must be at least 3 characters")
	}
	if !emailRegex.MatchString(in.Email) {
		verr.add("email", "Invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		verr.add("password", "Password must be at least 6 characters")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
