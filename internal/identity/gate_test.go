package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

type memoryStore struct {
	current  *models.User
	saves    int
	saveErr  error
	restored bool
}

func (m *memoryStore) CurrentSignedIn(ctx context.Context) (*models.User, error) {
	m.restored = true
	return m.current, nil
}

func (m *memoryStore) SaveSignIn(ctx context.Context, user *models.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.current = user
	return nil
}

func (m *memoryStore) SignOutAll(ctx context.Context) error {
	m.current = nil
	return nil
}

func TestGate(t *testing.T) {
	ctx := context.Background()

	t.Run("Observe delivers current user immediately", func(t *testing.T) {
		gate := NewGate(nil, nil)

		var calls int
		var got *models.User
		gate.Observe(func(u *models.User) {
			calls++
			got = u
		})

		if calls != 1 {
			t.Fatalf("expected 1 immediate call, got %d", calls)
		}
		if got != nil {
			t.Errorf("expected nil user, got %v", got)
		}
	})

	t.Run("SignIn and SignOut notify observers", func(t *testing.T) {
		store := &memoryStore{}
		gate := NewGate(store, nil)

		var seen []*models.User
		unsubscribe := gate.Observe(func(u *models.User) { seen = append(seen, u) })

		user := models.NewUser(0, "sub-1", "ada@example.com", "Ada")
		if err := gate.SignIn(ctx, user); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if !user.SignedIn() {
			t.Error("expected user to be marked signed in")
		}
		if store.saves != 1 {
			t.Errorf("expected one save, got %d", store.saves)
		}
		if gate.Current() != user {
			t.Error("expected Current to return signed-in user")
		}

		if err := gate.SignOut(ctx); err != nil {
			t.Fatalf("SignOut failed: %v", err)
		}
		if gate.Current() != nil {
			t.Error("expected no current user after sign out")
		}

		if len(seen) != 3 || seen[0] != nil || seen[1] != user || seen[2] != nil {
			t.Errorf("unexpected observation sequence: %v", seen)
		}

		unsubscribe()
		unsubscribe()
		_ = gate.SignIn(ctx, user)
		if len(seen) != 3 {
			t.Errorf("expected no notifications after unsubscribe, got %d", len(seen))
		}
	})

	t.Run("SignIn rejects invalid user", func(t *testing.T) {
		gate := NewGate(nil, nil)

		err := gate.SignIn(ctx, models.NewUser(0, "", "", ""))
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}

		if err := gate.SignIn(ctx, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("SignIn leaves state unchanged when store fails", func(t *testing.T) {
		store := &memoryStore{saveErr: errors.New("disk full")}
		gate := NewGate(store, nil)

		err := gate.SignIn(ctx, models.NewUser(0, "sub-1", "ada@example.com", ""))
		if err == nil {
			t.Fatal("expected error")
		}
		if gate.Current() != nil {
			t.Error("expected no current user")
		}
	})

	t.Run("Restore reads store", func(t *testing.T) {
		user := models.NewUser(1, "sub-1", "ada@example.com", "Ada")
		user.SetID("user-1")
		store := &memoryStore{current: user}
		gate := NewGate(store, nil)

		if err := gate.Restore(ctx); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if !store.restored {
			t.Error("expected store to be consulted")
		}
		if gate.CurrentID() != "user-1" {
			t.Errorf("expected user-1, got %q", gate.CurrentID())
		}
	})

	t.Run("Require", func(t *testing.T) {
		gate := NewGate(nil, nil)

		if err := gate.Require(false); err != nil {
			t.Errorf("expected nil when not required, got %v", err)
		}
		if err := gate.Require(true); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		_ = gate.SignIn(ctx, models.NewUser(0, "sub-1", "ada@example.com", ""))
		if err := gate.Require(true); err != nil {
			t.Errorf("expected nil when signed in, got %v", err)
		}
	})
}
