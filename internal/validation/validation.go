// Package validation holds the server-side input rules for account requests.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"accountsvc/internal/domain"
)

const (
	MinPasswordLength = 8
	SpecialCharacters = "@$!%*#?&"
)

const (
	MsgPasswordLength    = "Password must be at least 8 characters long."
	MsgPasswordUppercase = "Password must include at least one uppercase letter."
	MsgPasswordLowercase = "Password must include at least one lowercase letter."
	MsgPasswordNumber    = "Password must include at least one number."
	MsgPasswordSpecial   = "Password must include at least one special character."
	MsgInvalidEmail      = "Please enter a valid email address."
	MsgUsernameRequired  = "Username is required."
	MsgInvalidTheme      = "Theme must be one of light, dark or system."
)

type passwordRule struct {
	message string
	ok      func(string) bool
}

// Order matters: the first failing rule is reported.
var passwordRules = []passwordRule{
	{MsgPasswordLength, func(p string) bool { return utf8.RuneCountInString(p) >= MinPasswordLength }},
	{MsgPasswordUppercase, func(p string) bool { return containsRune(p, func(r rune) bool { return r >= 'A' && r <= 'Z' }) }},
	{MsgPasswordLowercase, func(p string) bool { return containsRune(p, func(r rune) bool { return r >= 'a' && r <= 'z' }) }},
	{MsgPasswordNumber, func(p string) bool { return containsRune(p, func(r rune) bool { return r >= '0' && r <= '9' }) }},
	{MsgPasswordSpecial, func(p string) bool { return strings.ContainsAny(p, SpecialCharacters) }},
}

func containsRune(s string, pred func(rune) bool) bool {
	return strings.IndexFunc(s, pred) >= 0
}

func ValidatePassword(password string) error {
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			return domain.NewValidationError("password", rule.message)
		}
	}
	return nil
}

// ValidateEmail requires exactly one '@', a non-empty local part, a domain
// containing a '.', and no whitespace.
func ValidateEmail(email string) error {
	invalid := domain.NewValidationError("email", MsgInvalidEmail)

	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return invalid
	}
	local, host, found := strings.Cut(email, "@")
	if !found || local == "" || strings.Contains(host, "@") {
		return invalid
	}
	// a dot with at least one character on each side
	if len(host) < 3 || !strings.Contains(host[1:len(host)-1], ".") {
		return invalid
	}
	return nil
}

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return domain.NewValidationError("user_name", MsgUsernameRequired)
	}
	return nil
}

func ValidateTheme(theme domain.Theme) error {
	if !theme.Valid() {
		return domain.ErrInvalidTheme
	}
	return nil
}
