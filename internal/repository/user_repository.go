package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/user-service/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	uniqueViolation = "23505"

	emailConstraint    = "users_email_live_key"
	usernameConstraint = "users_username_live_key"

	userColumns = `id, email, username, full_name, password_hash, is_active, is_superuser, role, deleted_at, created_at, updated_at`
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// DuplicateKeyError reports a uniqueness violation on Field ("email" or "username").
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already in use", e.Field)
}

// IsDuplicateKey unwraps a DuplicateKeyError from err.
func IsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// LookupOptions widens lookups to soft-deleted rows.
type LookupOptions struct {
	IncludeDeleted bool
}

// ListFilter pages through users in natural order.
type ListFilter struct {
	Offset         int
	Limit          int
	IncludeDeleted bool
}

// UserUpdate carries already-hashed partial changes; nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	Username     *string
	FullName     *string
	PasswordHash *string
	Role         *domain.Role
	IsActive     *bool
}

// UserRepository defines persistence access for user accounts.
// Lookups ignore soft-deleted rows unless asked otherwise.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id string, changes UserUpdate) (*domain.User, error)
	Get(ctx context.Context, id string, opts LookupOptions) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, filter ListFilter) ([]domain.User, error)
	SoftDelete(ctx context.Context, id string) (*domain.User, error)
	HardDelete(ctx context.Context, id string) (*domain.User, error)
	GrantSuperuser(ctx context.Context, id string) (*domain.User, error)
	Ping(ctx context.Context) error
}

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, username, full_name, password_hash, is_active, is_superuser, role)
        VALUES ($1, $2, $3, $4, $5, TRUE, FALSE, $6)
        RETURNING created_at, updated_at`

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	user.IsActive = true
	user.IsSuperuser = false
	user.DeletedAt = nil

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) Update(ctx context.Context, id string, changes UserUpdate) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	args := []any{}
	sets := []string{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if changes.Email != nil {
		set("email", *changes.Email)
	}
	if changes.Username != nil {
		set("username", *changes.Username)
	}
	if changes.FullName != nil {
		set("full_name", *changes.FullName)
	}
	if changes.PasswordHash != nil {
		set("password_hash", *changes.PasswordHash)
	}
	if changes.Role != nil {
		set("role", *changes.Role)
	}
	if changes.IsActive != nil {
		set("is_active", *changes.IsActive)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE users SET %s
        WHERE id=$%d AND deleted_at IS NULL
        RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)

	return scanUser(r.db.QueryRow(ctx, query, args...))
}

func (r *userRepository) Get(ctx context.Context, id string, opts LookupOptions) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if !opts.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username=$1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *userRepository) List(ctx context.Context, filter ListFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !filter.IncludeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	limit, offset := normalizePage(filter)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) SoftDelete(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `
        UPDATE users
        SET deleted_at=COALESCE(deleted_at, NOW()),
            updated_at=CASE WHEN deleted_at IS NULL THEN NOW() ELSE updated_at END
        WHERE id=$1
        RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) HardDelete(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `DELETE FROM users WHERE id=$1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GrantSuperuser(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `
        UPDATE users SET is_superuser=TRUE, role=$1, updated_at=NOW()
        WHERE id=$2 AND deleted_at IS NULL
        RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, domain.RoleSuperAdmin, id))
}

func (r *userRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsSuperuser,
		&user.Role,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case emailConstraint:
			return &DuplicateKeyError{Field: "email"}
		case usernameConstraint:
			return &DuplicateKeyError{Field: "username"}
		default:
			return &DuplicateKeyError{Field: pgErr.ConstraintName}
		}
	}
	return err
}

func normalizePage(filter ListFilter) (limit, offset int) {
	limit = filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = filter.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
