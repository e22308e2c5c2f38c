package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/auth/jwt"
	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminExists        = errors.New("admin account already exists")
	ErrInvalidUsername    = errors.New("invalid username")
)

const (
	playerTokenTTL = 30 * 24 * time.Hour
	adminTokenTTL  = 24 * time.Hour
)

// UserStore is the persistence surface the auth service needs. Implemented by
// repository.UserRepository.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	AdminExists(ctx context.Context) (bool, error)
	Insert(ctx context.Context, u model.User) (model.User, error)
	UpdateProfile(ctx context.Context, u model.User) (model.User, error)
	Search(ctx context.Context, query string, limit int) ([]model.User, error)
}

// Service handles authentication and account management. Players sign in by
// username alone; only admin accounts carry a password.
type Service struct {
	users    UserStore
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

// NewService creates an authentication service.
func NewService(users UserStore, tokenCfg jwt.TokenConfig, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		tokenMgr: jwt.NewManager(tokenCfg),
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterPlayer signs a player in by username, creating the account on first
// use. Two devices racing on the same new username both succeed: the loser of
// the unique-constraint race signs into the winner's row.
func (s *Service) RegisterPlayer(ctx context.Context, username string) (model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, "", ErrInvalidUsername
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.users.Insert(ctx, model.User{Username: username})
		if errors.Is(err, repository.ErrUsernameTaken) {
			user, err = s.users.FindByUsername(ctx, username)
		}
	}
	if err != nil {
		return model.User{}, "", fmt.Errorf("register player: %w", err)
	}

	token, err := s.generateToken(user, playerTokenTTL)
	if err != nil {
		return model.User{}, "", err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("username", username).Msg("player signed in")
	return user, token, nil
}

// LoginAdmin authenticates an admin with username and password.
func (s *Service) LoginAdmin(ctx context.Context, username, password string) (model.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, "", fmt.Errorf("admin login: %w", err)
	}

	if !user.IsAdmin || user.PasswordHash == "" {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(user, adminTokenTTL)
	if err != nil {
		return model.User{}, "", err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("admin logged in")
	return user, token, nil
}

// CreateAdmin bootstraps the first admin account. Once any admin exists the
// endpoint is closed.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (model.User, error) {
	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("create admin: %w", err)
	}
	if exists {
		return model.User{}, ErrAdminExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Insert(ctx, model.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("admin account created")
	return user, nil
}

// ValidateToken validates a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.Validate(tokenString)
}

// GetUser fetches one account.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdatePreferences replaces the user's preferences and avatar.
func (s *Service) UpdatePreferences(ctx context.Context, id uuid.UUID, avatarURL string, prefs model.Preferences) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	user.AvatarURL = avatarURL
	user.Preferences = prefs
	return s.users.UpdateProfile(ctx, user)
}

// SearchUsers finds accounts by username fragment.
func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.users.Search(ctx, query, limit)
}

func (s *Service) generateToken(user model.User, ttl time.Duration) (string, error) {
	token, err := s.tokenMgr.Generate(jwt.User{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}, ttl)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
