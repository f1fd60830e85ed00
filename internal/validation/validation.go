// Package validation checks user supplied input before it reaches storage.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
)

// MinFieldLength is the minimum trimmed length of passwords, titles and content.
const MinFieldLength = 5

const maxEmailLength = 254

var emailDomainRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)+$`)

// Messages reported for rejected fields.
const (
	MsgInvalidInput    = "Invalid Input"
	MsgInvalidEmail    = "E-mail is invalid!"
	MsgInvalidPassword = "Password must be of 5 characters long!"
	MsgInvalidTitle    = "Title is Invalid!"
	MsgInvalidContent  = "Please describe your post in at least 5 characters."
)

// Issues accumulates field problems so that all of them are reported at once.
type Issues struct {
	list []models.FieldIssue
}

// Add records a problem with param.
func (i *Issues) Add(param, message string) {
	i.list = append(i.list, models.FieldIssue{Param: param, Message: message})
}

// Len returns the number of recorded issues.
func (i *Issues) Len() int {
	return len(i.list)
}

// Err returns nil when no issues were recorded, otherwise a validation AppError.
func (i *Issues) Err() error {
	if len(i.list) == 0 {
		return nil
	}
	out := make([]models.FieldIssue, len(i.list))
	copy(out, i.list)
	return models.NewValidationError(MsgInvalidInput, out...)
}

// MinLength reports whether s has at least n characters.
func MinLength(s string, n int) bool {
	return s != "" && utf8.RuneCountInString(s) >= n
}

// IsEmail performs a syntactic address check. Display names are rejected.
func IsEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at > 64 {
		return false
	}
	return emailDomainRegex.MatchString(email[at+1:])
}

// NormalizeEmail is the stored form of an email address: trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Credentials normalizes and checks registration input. The normalized values are returned.
func Credentials(email, password string) (string, string, error) {
	email = NormalizeEmail(email)
	password = strings.TrimSpace(password)

	var issues Issues
	if !IsEmail(email) {
		issues.Add("email", MsgInvalidEmail)
	}
	if !MinLength(password, MinFieldLength) {
		issues.Add("password", MsgInvalidPassword)
	}
	return email, password, issues.Err()
}

// Post trims and checks post title and content. The trimmed values are returned.
func Post(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	var issues Issues
	if !MinLength(title, MinFieldLength) {
		issues.Add("title", MsgInvalidTitle)
	}
	if !MinLength(content, MinFieldLength) {
		issues.Add("content", MsgInvalidContent)
	}
	return title, content, issues.Err()
}
