package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// UserRepository persists player and admin accounts.
type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, is_admin, avatar_url, preferences, created_at, updated_at`

// FindByID fetches one user.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindByUsername fetches a user by unique username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// AdminExists reports whether any admin account has been created.
func (r *UserRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE is_admin)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin exists: %w", err)
	}
	return exists, nil
}

// Insert stores a new user.
func (r *UserRepository) Insert(ctx context.Context, u model.User) (model.User, error) {
	prefsJSON, err := json.Marshal(u.Preferences)
	if err != nil {
		return model.User{}, fmt.Errorf("encode preferences: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, is_admin, avatar_url, preferences)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.Username, nullableString(u.PasswordHash), u.IsAdmin, nullableString(u.AvatarURL), prefsJSON)

	inserted, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return model.User{}, ErrUsernameTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return inserted, nil
}

// UpdateProfile rewrites mutable profile fields (avatar + preferences).
func (r *UserRepository) UpdateProfile(ctx context.Context, u model.User) (model.User, error) {
	prefsJSON, err := json.Marshal(u.Preferences)
	if err != nil {
		return model.User{}, fmt.Errorf("encode preferences: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET avatar_url = $2, preferences = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, nullableString(u.AvatarURL), prefsJSON)

	updated, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user profile: %w", err)
	}
	return updated, nil
}

// Search finds users by case-insensitive username fragment.
func (r *UserRepository) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username ASC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u            model.User
		passwordHash *string
		avatarURL    *string
		prefsJSON    []byte
	)
	err := row.Scan(&u.ID, &u.Username, &passwordHash, &u.IsAdmin, &avatarURL, &prefsJSON, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &u.Preferences); err != nil {
			return model.User{}, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return u, nil
}
