package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// UserStore persists the signed-in user between runs.
type UserStore interface {
	CurrentSignedIn(ctx context.Context) (*models.User, error)
	SaveSignIn(ctx context.Context, user *models.User) error
	SignOutAll(ctx context.Context) error
}

// Gate holds the current user and notifies observers when it changes.
type Gate struct {
	mu        sync.Mutex
	store     UserStore
	current   *models.User
	observers map[int]func(*models.User)
	nextID    int
	logger    *log.Logger
}

// NewGate creates a [Gate]. A nil store keeps the user in memory only.
func NewGate(store UserStore, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gate{store: store, observers: make(map[int]func(*models.User)), logger: logger}
}

// Restore loads the signed-in user from the store.
func (g *Gate) Restore(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	user, err := g.store.CurrentSignedIn(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	g.set(user)
	return nil
}

// Observe calls fn with the current user (nil when signed out) and again after every change.
func (g *Gate) Observe(fn func(*models.User)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.observers[id] = fn
	current := g.current
	g.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.observers, id)
			g.mu.Unlock()
		})
	}
}

// SignIn persists user as the signed-in user and notifies observers.
func (g *Gate) SignIn(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("%w: no user", shared.ErrInvalidInput)
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	user.SetSignedIn(true)
	if g.store != nil {
		if err := g.store.SaveSignIn(ctx, user); err != nil {
			return fmt.Errorf("failed to save sign-in: %w", err)
		}
	}

	g.logger.Info("signed in", "user", user.DisplayName())
	g.set(user)
	return nil
}

// SignOut clears the signed-in user and notifies observers.
func (g *Gate) SignOut(ctx context.Context) error {
	if g.store != nil {
		if err := g.store.SignOutAll(ctx); err != nil {
			return err
		}
	}

	g.set(nil)
	return nil
}

// Current returns the signed-in user, or nil.
func (g *Gate) Current() *models.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// CurrentID returns the signed-in user's ID, or "" when signed out.
func (g *Gate) CurrentID() string {
	if u := g.Current(); u != nil {
		return u.ID()
	}
	return ""
}

// Require returns [shared.ErrNotAuthenticated] when required is set and nobody is signed in.
func (g *Gate) Require(required bool) error {
	if required && g.Current() == nil {
		return fmt.Errorf("%w: run `moodtunes auth login` first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (g *Gate) set(user *models.User) {
	g.mu.Lock()
	g.current = user
	observers := make([]func(*models.User), 0, len(g.observers))
	for _, fn := range g.observers {
		observers = append(observers, fn)
	}
	g.mu.Unlock()

	for _, fn := range observers {
		fn(user)
	}
}
