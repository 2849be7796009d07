package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, sequence, subject, email, name, token, signed_in, created_at, updated_at, deleted_at`

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)
	user.SetSequence(sequence)

	query := `
		INSERT INTO users (id, sequence, subject, email, name, token, signed_in, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, user.Subject(), user.Email(), user.Name(), user.Token(),
		user.SignedIn(), user.CreatedAt(), user.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`

	user, err := scanUser(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetBySubject retrieves a user by the identity provider's subject
func (r *UserRepository) GetBySubject(subject string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subject = ? AND deleted_at IS NULL`

	user, err := scanUser(r.db.QueryRow(query, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: subject %s", shared.ErrUserNotFound, subject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET email = ?, name = ?, token = ?, signed_in = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.Email(), user.Name(), user.Token(), user.SignedIn(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectRow(result, shared.ErrUserNotFound, user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?, signed_in = 0
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectRow(result, shared.ErrUserNotFound, id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
//
// Supported criteria: "email" (string), "signed_in" (bool).
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}
	if signedIn, ok := criteria["signed_in"].(bool); ok {
		query += " AND signed_in = ?"
		args = append(args, signedIn)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// CurrentSignedIn returns the most recently updated signed-in user, or nil when nobody is signed in.
func (r *UserRepository) CurrentSignedIn(ctx context.Context) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE signed_in = 1 AND deleted_at IS NULL
		ORDER BY updated_at DESC LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query signed-in user: %w", err)
	}
	return user, nil
}

// SaveSignIn upserts user by subject and marks it as the only signed-in user.
func (r *UserRepository) SaveSignIn(ctx context.Context, user *models.User) error {
	user.SetSignedIn(true)

	existing, err := r.GetBySubject(user.Subject())
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		if err := r.Create(user); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		user.SetID(existing.ID())
		user.SetSequence(existing.Sequence())
		user.SetCreatedAt(existing.CreatedAt())
		if err := r.Update(user); err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, `UPDATE users SET signed_in = 0 WHERE id != ? AND signed_in = 1`, user.ID())
	if err != nil {
		return fmt.Errorf("failed to sign out other users: %w", err)
	}
	return nil
}

// SignOutAll clears the signed-in flag and stored token of every user.
func (r *UserRepository) SignOutAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET signed_in = 0, token = '', updated_at = ? WHERE signed_in = 1`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		id        string
		sequence  int
		subject   string
		email     string
		name      string
		token     string
		signedIn  bool
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &subject, &email, &name, &token, &signedIn, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, subject, email, name)
	user.SetID(id)
	user.SetToken(token)
	user.SetSignedIn(signedIn)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}
