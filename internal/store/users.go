package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lovrop/najdeno/internal/model"
)

// CreateUser creates a new user account.
func CreateUser(ctx context.Context, db *sql.DB, firstName, lastName, email, phone, passwordHash, role string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, phone, password_hash, role)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		firstName, lastName, email, phone, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u := &model.User{}
	var phone, photoMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone, password_hash, role, photo_mime, created_at, deleted_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &phone, &u.PasswordHash, &u.Role, &photoMime, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Phone = phone.String
	u.PhotoMime = photoMime.String
	return u, nil
}

// GetUserByEmail returns a user by email (including soft-deleted for auth checks).
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u := &model.User{}
	var phone, photoMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone, password_hash, role, photo_mime, created_at, deleted_at
		 FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &phone, &u.PasswordHash, &u.Role, &photoMime, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	u.Phone = phone.String
	u.PhotoMime = photoMime.String
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, phone, password_hash, role, photo_mime, created_at, deleted_at
		 FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var phone, photoMime sql.NullString
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &phone, &u.PasswordHash, &u.Role, &photoMime, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Phone = phone.String
		u.PhotoMime = photoMime.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserProfile updates a user's profile fields.
func UpdateUserProfile(ctx context.Context, db *sql.DB, id int64, firstName, lastName, email, phone string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, email = ?, phone = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		firstName, lastName, email, phone, id,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	return nil
}

// UpdateUserRole updates a user's role.
func UpdateUserRole(ctx context.Context, db *sql.DB, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// SetUserPhoto sets a user's profile photo.
func SetUserPhoto(ctx context.Context, db *sql.DB, id int64, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET photo = ?, photo_mime = ? WHERE id = ? AND deleted_at IS NULL`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting user photo: %w", err)
	}
	return nil
}

// GetUserPhoto returns a non-deleted user's profile photo data and MIME type.
func GetUserPhoto(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM users WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting user photo: %w", err)
	}
	return photo, mime.String, nil
}
