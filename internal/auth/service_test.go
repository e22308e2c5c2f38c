package auth

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/trivialabs/trivia-platform/internal/auth/jwt"
	"github.com/trivialabs/trivia-platform/internal/db/repository"
	"github.com/trivialabs/trivia-platform/internal/model"
)

type memoryUserStore struct {
	byUsername map[string]model.User

	// insertHook runs before each insert; used to simulate a racing device.
	insertHook func()
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{byUsername: map[string]model.User{}}
}

func (m *memoryUserStore) FindByID(_ context.Context, id uuid.UUID) (model.User, error) {
	for _, u := range m.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memoryUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memoryUserStore) AdminExists(context.Context) (bool, error) {
	for _, u := range m.byUsername {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserStore) Insert(_ context.Context, u model.User) (model.User, error) {
	if m.insertHook != nil {
		m.insertHook()
	}
	if _, ok := m.byUsername[u.Username]; ok {
		return model.User{}, repository.ErrUsernameTaken
	}
	u.ID = uuid.New()
	m.byUsername[u.Username] = u
	return u, nil
}

func (m *memoryUserStore) UpdateProfile(_ context.Context, u model.User) (model.User, error) {
	for name, existing := range m.byUsername {
		if existing.ID == u.ID {
			u.Username = name
			m.byUsername[name] = u
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memoryUserStore) Search(_ context.Context, query string, limit int) ([]model.User, error) {
	return nil, nil
}

func newTestService(store UserStore) *Service {
	return NewService(store, jwt.TokenConfig{Secret: []byte("test-secret")}, zerolog.New(io.Discard))
}

func TestRegisterPlayerCreatesThenReuses(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, token, err := svc.RegisterPlayer(ctx, "alice")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, first.IsAdmin)

	again, _, err := svc.RegisterPlayer(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same username signs into the same account")
	assert.Len(t, store.byUsername, 1)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterPlayerRecoversFromUsernameRace(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)

	winner := model.User{ID: uuid.New(), Username: "alice"}
	raced := false
	store.insertHook = func() {
		if raced {
			return
		}
		raced = true
		store.byUsername["alice"] = winner
	}

	user, _, err := svc.RegisterPlayer(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Equal(t, winner.ID, user.ID, "loser signs into the winner's account")
	assert.Len(t, store.byUsername, 1)
}

func TestRegisterPlayerRejectsBlankUsername(t *testing.T) {
	svc := newTestService(newMemoryUserStore())

	_, _, err := svc.RegisterPlayer(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestAdminLoginFlow(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "admin", "correct horse battery")
	assert.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, token, err := svc.LoginAdmin(ctx, "admin", "correct horse battery")
	assert.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	_, _, err = svc.LoginAdmin(ctx, "admin", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginAdmin(ctx, "nobody", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginAdminRejectsPlayers(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.RegisterPlayer(ctx, "alice")
	assert.NoError(t, err)

	_, _, err = svc.LoginAdmin(ctx, "alice", "anything at all")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAdminClosedAfterFirst(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "admin", "correct horse battery")
	assert.NoError(t, err)

	_, err = svc.CreateAdmin(ctx, "second", "another password!")
	assert.ErrorIs(t, err, ErrAdminExists)
}

func TestCreateAdminRejectsShortPassword(t *testing.T) {
	svc := newTestService(newMemoryUserStore())

	_, err := svc.CreateAdmin(context.Background(), "admin", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(newMemoryUserStore())

	_, err := svc.ValidateToken("not a token")
	assert.Error(t, err)
}

func TestUpdatePreferences(t *testing.T) {
	store := newMemoryUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	user, _, err := svc.RegisterPlayer(ctx, "alice")
	assert.NoError(t, err)

	updated, err := svc.UpdatePreferences(ctx, user.ID, "https://cdn.example/a.png", model.Preferences{
		FavoriteSubjects: []string{"history", "science"},
		Language:         "he",
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", updated.AvatarURL)
	assert.Equal(t, []string{"history", "science"}, updated.Preferences.FavoriteSubjects)
}
