package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/warenvoyage/apiserver/types"
)

const (
	uniqueViolation  = "23505"
	phoneUniqueIndex = "ix_users_phone"
	emailUniqueIndex = "ix_users_email"
	userColumns      = `id, phone, email, full_name, hashed_password, role, is_kyc_verified, kyc_verified_at, kyc_documents_status, is_active, is_superuser, created_at, updated_at`
)

// UserRepository handles persistence for users. Uniqueness of phone and
// email is enforced by unique indexes, so concurrent creates race inside
// PostgreSQL and exactly one of them commits.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user          types.User
		email         sql.NullString
		fullName      sql.NullString
		kycVerifiedAt sql.NullTime
		kycStatus     sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Phone,
		&email,
		&fullName,
		&user.HashedPassword,
		&user.Role,
		&user.IsKYCVerified,
		&kycVerifiedAt,
		&kycStatus,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.Email = nullStringPtr(email)
	user.DisplayName = nullStringPtr(fullName)
	user.KYCDocumentsStatus = nullStringPtr(kycStatus)
	if kycVerifiedAt.Valid {
		at := kycVerifiedAt.Time
		user.KYCVerifiedAt = &at
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, phone))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, candidate types.NewUser) (types.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, phone, email, full_name, hashed_password, role, is_kyc_verified, is_active, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, true, $7, $8, $8)
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		candidate.Phone,
		candidate.Email,
		candidate.DisplayName,
		candidate.HashedPassword,
		candidate.Role,
		candidate.IsSuperuser,
		now,
	))
	if err != nil {
		if dup, ok := classifyUniqueViolation(err); ok {
			return types.User{}, dup
		}
		return types.User{}, err
	}
	return user, nil
}

// Update applies only the fields set in patch and bumps updated_at.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (types.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	switch {
	case patch.ClearEmail:
		set("email", nil)
	case patch.Email != nil:
		set("email", *patch.Email)
	}
	if patch.DisplayName != nil {
		set("full_name", *patch.DisplayName)
	}
	if patch.HashedPassword != nil {
		set("hashed_password", *patch.HashedPassword)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	if patch.IsKYCVerified != nil {
		set("is_kyc_verified", *patch.IsKYCVerified)
	}
	switch {
	case patch.ClearKYCVerifiedAt:
		set("kyc_verified_at", nil)
	case patch.KYCVerifiedAt != nil:
		set("kyc_verified_at", *patch.KYCVerifiedAt)
	}
	if patch.KYCDocumentsStatus != nil {
		set("kyc_documents_status", *patch.KYCDocumentsStatus)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "),
		len(args),
		userColumns,
	)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if dup, ok := classifyUniqueViolation(err); ok {
			return types.User{}, dup
		}
		return types.User{}, err
	}
	return user, nil
}

// Delete removes the user and reports whether a row existed.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// classifyUniqueViolation maps a PostgreSQL unique_violation to the colliding field.
func classifyUniqueViolation(err error) (DuplicateError, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return DuplicateError{}, false
	}

	constraint := strings.ToLower(pqErr.Constraint)
	switch {
	case constraint == phoneUniqueIndex, strings.Contains(constraint, "phone"):
		return DuplicateError{Field: FieldPhone}, true
	case constraint == emailUniqueIndex, strings.Contains(constraint, "email"):
		return DuplicateError{Field: FieldEmail}, true
	default:
		return DuplicateError{}, true
	}
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
