package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/breathesense-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeNotNullViolation = "23502"
)

const userColumns = `id, email, first_name, last_name, role, date_of_birth, phone_number,
	address, medical_history, emergency_contact, is_active, last_login, created_at, updated_at`

// UserRepository stores users in postgres.
type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	row, err := newUserRow(user)
	if err != nil {
		return model.User{}, err
	}

	query := `INSERT INTO users (id, email, password_hash, first_name, last_name, role, date_of_birth,
			  phone_number, address, medical_history, emergency_contact, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role), user.DateOfBirth,
		user.PhoneNumber, row.address, row.medicalHistory, row.emergencyContact, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", mapError(err))
	}

	return saved, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmailWithCredential(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = lower($1)`

	var hash string
	user, err := scanUser(r.db.QueryRow(ctx, query, email), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	user.PasswordHash = hash

	return user, nil
}

// Update overwrites the mutable columns of user. Email, password hash and
// created_at are never written here.
func (r *UserRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	row, err := newUserRow(user)
	if err != nil {
		return model.User{}, err
	}

	query := `UPDATE users SET first_name = $2, last_name = $3, role = $4, date_of_birth = $5,
			  phone_number = $6, address = $7, medical_history = $8, emergency_contact = $9,
			  is_active = $10, updated_at = $11
			  WHERE id = $1
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.FirstName, user.LastName, string(user.Role), user.DateOfBirth, user.PhoneNumber,
		row.address, row.medicalHistory, row.emergencyContact, user.IsActive, user.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", mapError(err))
	}

	return saved, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter model.ListFilter) ([]model.User, int64, error) {
	where, args := listConditions(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, filter.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// listConditions builds the WHERE clause shared by the count and page queries.
func listConditions(filter model.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// mapError translates constraint violations into model errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return model.ErrEmailTaken
	case codeCheckViolation, codeNotNullViolation:
		return fmt.Errorf("%w: %s", model.ErrConstraint, pgErr.ConstraintName)
	default:
		return err
	}
}

// userRow carries the JSONB columns in their encoded form.
type userRow struct {
	address          []byte
	medicalHistory   []byte
	emergencyContact []byte
}

func newUserRow(user model.User) (userRow, error) {
	var (
		row userRow
		err error
	)
	if row.address, err = encodeJSON(user.Address); err != nil {
		return userRow{}, fmt.Errorf("failed to encode address: %w", err)
	}
	if row.medicalHistory, err = encodeJSON(user.MedicalHistory); err != nil {
		return userRow{}, fmt.Errorf("failed to encode medical history: %w", err)
	}
	if row.emergencyContact, err = encodeJSON(user.EmergencyContact); err != nil {
		return userRow{}, fmt.Errorf("failed to encode emergency contact: %w", err)
	}
	return row, nil
}

// encodeJSON returns nil for a nil pointer so the column is stored as NULL.
func encodeJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeJSON[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func scanUser(row pgx.Row, extra ...any) (model.User, error) {
	var (
		user                                      model.User
		role                                      string
		address, medicalHistory, emergencyContact []byte
	)

	dest := []any{
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &role, &user.DateOfBirth, &user.PhoneNumber,
		&address, &medicalHistory, &emergencyContact, &user.IsActive, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.User{}, err
	}
	user.Role = model.Role(role)

	var err error
	if user.Address, err = decodeJSON[model.Address](address); err != nil {
		return model.User{}, fmt.Errorf("failed to decode address: %w", err)
	}
	if user.MedicalHistory, err = decodeJSON[model.MedicalHistory](medicalHistory); err != nil {
		return model.User{}, fmt.Errorf("failed to decode medical history: %w", err)
	}
	if user.EmergencyContact, err = decodeJSON[model.EmergencyContact](emergencyContact); err != nil {
		return model.User{}, fmt.Errorf("failed to decode emergency contact: %w", err)
	}

	return user, nil
}
