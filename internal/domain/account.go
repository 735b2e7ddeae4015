package domain

import (
	"context"
	"time"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	default:
		return false
	}
}

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePhoto string    `json:"profile_photo"`
	PhoneNumber  string    `json:"phone_number"`
	Location     string    `json:"location"`
	Theme        Theme     `json:"theme"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountView is the public projection of an account returned to clients.
type AccountView struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profile_photo"`
	PhoneNumber  string `json:"phone_number"`
	Location     string `json:"location"`
	Theme        Theme  `json:"theme"`
	Language     string `json:"language,omitempty"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		ProfilePhoto: a.ProfilePhoto,
		PhoneNumber:  a.PhoneNumber,
		Location:     a.Location,
		Theme:        a.Theme,
		Language:     a.Language,
	}
}

// ProfilePatch describes a partial update. A nil field is left untouched,
// a non-nil field is written even when it points at an empty string.
type ProfilePatch struct {
	ProfilePhoto *string
	PhoneNumber  *string
	Location     *string
	Theme        *Theme
	Language     *string
}

func (p ProfilePatch) Empty() bool {
	return p.ProfilePhoto == nil && p.PhoneNumber == nil && p.Location == nil &&
		p.Theme == nil && p.Language == nil
}

// ChangesFrom reports whether applying p to a would modify at least one field.
func (p ProfilePatch) ChangesFrom(a *Account) bool {
	switch {
	case p.ProfilePhoto != nil && *p.ProfilePhoto != a.ProfilePhoto:
		return true
	case p.PhoneNumber != nil && *p.PhoneNumber != a.PhoneNumber:
		return true
	case p.Location != nil && *p.Location != a.Location:
		return true
	case p.Theme != nil && *p.Theme != a.Theme:
		return true
	case p.Language != nil && *p.Language != a.Language:
		return true
	}
	return false
}

func (p ProfilePatch) ApplyTo(a *Account) {
	if p.ProfilePhoto != nil {
		a.ProfilePhoto = *p.ProfilePhoto
	}
	if p.PhoneNumber != nil {
		a.PhoneNumber = *p.PhoneNumber
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Theme != nil {
		a.Theme = *p.Theme
	}
	if p.Language != nil {
		a.Language = *p.Language
	}
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"-"`
	User      AccountView `json:"user"`
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	ApplyProfilePatch(ctx context.Context, id string, patch ProfilePatch, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, updatedAt time.Time) error
}

type AccountService interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	GetAccount(ctx context.Context, id string) (*AccountView, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error
	UpdateSettings(ctx context.Context, id string, theme *Theme, language *string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string, confirmPassword *string) error
}
