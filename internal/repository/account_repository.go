package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
	"accountsvc/pkg/metrics"
)

const accountColumns = `id, username, email, password_hash, profile_photo, phone_number, location, theme, language, created_at, updated_at`

// SQLAccountRepository stores accounts in sqlite or postgres. Queries use
// $N placeholders, which both drivers accept.
type SQLAccountRepository struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewSQLAccountRepository(db *sql.DB, logger logger.Logger) *SQLAccountRepository {
	return &SQLAccountRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func observe(operation, entity string) func() {
	start := time.Now()
	return func() {
		metrics.RecordDatabaseOperation(operation, entity, time.Since(start))
	}
}

func (r *SQLAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	defer observe("create", "account")()

	now := r.now().UTC()
	id := uuid.NewString()
	if account.Theme == "" {
		account.Theme = domain.ThemeSystem
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.ProfilePhoto,
		account.PhoneNumber,
		account.Location,
		string(account.Theme),
		account.Language,
		now,
		now,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		r.logger.ErrorContext(ctx, "Could not create account", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("create account: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *SQLAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	defer observe("find_by_id", "account")()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *SQLAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer observe("find_by_email", "account")()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.findOne(ctx, query, email)
}

// FindByIdentifier matches either email or username, preferring an email
// match when both exist.
func (r *SQLAccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	defer observe("find_by_identifier", "account")()

	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE email = $1 OR username = $1
		ORDER BY CASE WHEN email = $1 THEN 0 ELSE 1 END
		LIMIT 1`
	return r.findOne(ctx, query, identifier)
}

func (r *SQLAccountRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var (
		account domain.Account
		theme   string
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.ProfilePhoto,
		&account.PhoneNumber,
		&account.Location,
		&theme,
		&account.Language,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.ErrorContext(ctx, "Could not load account", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("load account: %w", err)
	}

	account.Theme = domain.Theme(theme)
	return &account, nil
}

// ApplyProfilePatch writes only the fields present in patch.
func (r *SQLAccountRepository) ApplyProfilePatch(ctx context.Context, id string, patch domain.ProfilePatch, updatedAt time.Time) error {
	defer observe("update_profile", "account")()

	if patch.Empty() {
		return domain.ErrNoChangeApplied
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.ProfilePhoto != nil {
		add("profile_photo", *patch.ProfilePhoto)
	}
	if patch.PhoneNumber != nil {
		add("phone_number", *patch.PhoneNumber)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Theme != nil {
		add("theme", string(*patch.Theme))
	}
	if patch.Language != nil {
		add("language", *patch.Language)
	}
	add("updated_at", updatedAt.UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	return r.execSingle(ctx, "update profile", query, args...)
}

func (r *SQLAccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, updatedAt time.Time) error {
	defer observe("update_password", "account")()

	query := `UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return r.execSingle(ctx, "update password", query, passwordHash, updatedAt.UTC(), id)
}

func (r *SQLAccountRepository) execSingle(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Account write failed", map[string]interface{}{"op": op, "error": err.Error()})
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
