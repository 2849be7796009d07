package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// every pooled connection would otherwise open its own empty in-memory database
	shared.ConfigureDatabase(db, 1, 1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "test@example.com", "Test User")
		user.SetToken(`{"access_token":"abc"}`)

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.Subject() != "sub-1" || retrieved.Email() != "test@example.com" {
			t.Errorf("unexpected user %s %s", retrieved.Subject(), retrieved.Email())
		}
		if retrieved.Token() != user.Token() {
			t.Errorf("expected token round trip, got %s", retrieved.Token())
		}

		bySubject, err := repo.GetBySubject("sub-1")
		if err != nil || bySubject.ID() != user.ID() {
			t.Errorf("expected lookup by subject, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "test@example.com", "Test User")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.SetName("Renamed")
		user.SetSignedIn(true)
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, _ := repo.Get(user.ID())
		if retrieved.Name() != "Renamed" || !retrieved.SignedIn() {
			t.Errorf("expected updated fields, got %s %v", retrieved.Name(), retrieved.SignedIn())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "test@example.com", "Test User")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := repo.Get(user.ID()); err == nil {
			t.Error("expected error when getting deleted user")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		users := []*models.User{
			models.NewUser(0, "sub-1", "user1@example.com", "User One"),
			models.NewUser(0, "sub-2", "user2@example.com", "User Two"),
			models.NewUser(0, "sub-3", "user3@example.com", "User Three"),
		}
		users[2].SetSignedIn(true)

		for _, user := range users {
			if err := repo.Create(user); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		retrieved, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(retrieved) != 3 {
			t.Errorf("expected 3 users, got %d", len(retrieved))
		}

		filtered, _ := repo.List(map[string]any{"email": "user2@example.com"})
		if len(filtered) != 1 || filtered[0].Subject() != "sub-2" {
			t.Errorf("expected sub-2 only, got %d users", len(filtered))
		}

		signedIn, _ := repo.List(map[string]any{"signed_in": true})
		if len(signedIn) != 1 || signedIn[0].Subject() != "sub-3" {
			t.Errorf("expected sub-3 signed in, got %d users", len(signedIn))
		}
	})

	t.Run("SignIn and SignOut", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ctx := context.Background()
		repo := NewUserRepository(db)

		current, err := repo.CurrentSignedIn(ctx)
		if err != nil || current != nil {
			t.Fatalf("expected nobody signed in, got %v %v", current, err)
		}

		first := models.NewUser(0, "sub-1", "one@example.com", "One")
		if err := repo.SaveSignIn(ctx, first); err != nil {
			t.Fatalf("failed to sign in: %v", err)
		}

		second := models.NewUser(0, "sub-2", "two@example.com", "Two")
		if err := repo.SaveSignIn(ctx, second); err != nil {
			t.Fatalf("failed to sign in: %v", err)
		}

		current, _ = repo.CurrentSignedIn(ctx)
		if current == nil || current.Subject() != "sub-2" {
			t.Fatalf("expected sub-2 signed in, got %v", current)
		}
		if again, _ := repo.Get(first.ID()); again.SignedIn() {
			t.Error("expected previous user signed out")
		}

		returning := models.NewUser(0, "sub-1", "one@new.example.com", "One")
		if err := repo.SaveSignIn(ctx, returning); err != nil {
			t.Fatalf("failed to sign in returning user: %v", err)
		}
		if returning.ID() != first.ID() {
			t.Error("expected returning user to keep its ID")
		}
		if all, _ := repo.List(nil); len(all) != 2 {
			t.Errorf("expected upsert, got %d users", len(all))
		}

		if err := repo.SignOutAll(ctx); err != nil {
			t.Fatalf("failed to sign out: %v", err)
		}
		if current, _ := repo.CurrentSignedIn(ctx); current != nil {
			t.Errorf("expected nobody signed in, got %s", current.Subject())
		}
	})
}

func TestDetectionRepository(t *testing.T) {
	tracks := models.TrackList{
		{Name: "Song A", Artist: "X", AlbumArtURL: "a.jpg", PreviewURL: "a.mp3"},
		{Name: "Song B", Artist: "Y"},
	}

	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDetectionRepository(db)
		d := models.NewDetection(0, "", "Happy", tracks)

		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create detection: %v", err)
		}

		retrieved, err := repo.Get(d.ID())
		if err != nil {
			t.Fatalf("failed to get detection: %v", err)
		}
		if retrieved.Label() != "Happy" || retrieved.UserID() != "" {
			t.Errorf("unexpected detection %s %q", retrieved.Label(), retrieved.UserID())
		}

		got := retrieved.Tracks()
		if got.Len() != 2 || got[0] != tracks[0] || got[1] != tracks[1] {
			t.Errorf("expected tracks round trip, got %+v", got)
		}
	})

	t.Run("Create with owner", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		users := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "a@example.com", "A")
		if err := users.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		repo := NewDetectionRepository(db)
		if err := repo.Create(models.NewDetection(0, user.ID(), "Sad", nil)); err != nil {
			t.Fatalf("failed to create detection: %v", err)
		}

		listed, err := repo.List(map[string]any{"user_id": user.ID()})
		if err != nil || len(listed) != 1 {
			t.Fatalf("expected 1 detection, got %d (%v)", len(listed), err)
		}
		if listed[0].Tracks() == nil {
			t.Error("expected empty non-nil track list")
		}

		if err := repo.Create(models.NewDetection(0, "", "Happy", nil)); err != nil {
			t.Fatalf("failed to create detection: %v", err)
		}
		anonymous, err := repo.List(map[string]any{"user_id": ""})
		if err != nil || len(anonymous) != 1 || anonymous[0].Label() != "Happy" {
			t.Fatalf("expected only the signed-out detection, got %d (%v)", len(anonymous), err)
		}
		all, _ := repo.List(map[string]any{})
		if len(all) != 2 {
			t.Errorf("expected 2 detections without an owner filter, got %d", len(all))
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDetectionRepository(db)
		for _, label := range []string{"happy", "Sad", "Happy"} {
			if err := repo.Create(models.NewDetection(0, "", label, tracks)); err != nil {
				t.Fatalf("failed to create detection: %v", err)
			}
		}

		all, _ := repo.List(map[string]any{})
		if len(all) != 3 || all[0].Label() != "Happy" {
			t.Errorf("expected newest first, got %d", len(all))
		}

		happy, _ := repo.List(map[string]any{"label": "HAPPY"})
		if len(happy) != 2 {
			t.Errorf("expected case-insensitive label filter, got %d", len(happy))
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected limit 1, got %d", len(limited))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDetectionRepository(db)
		d := models.NewDetection(0, "", "Happy", tracks)
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create detection: %v", err)
		}

		if err := repo.Delete(d.ID()); err != nil {
			t.Fatalf("failed to delete detection: %v", err)
		}
		if _, err := repo.Get(d.ID()); err == nil {
			t.Error("expected error when getting deleted detection")
		}
	})

	t.Run("Recorder", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		users := NewUserRepository(db)
		user := models.NewUser(0, "sub-1", "a@example.com", "A")
		if err := users.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		repo := NewDetectionRepository(db)
		recorder := repo.Recorder(func() string { return user.ID() })

		d, err := recorder.RecordDetection(context.Background(), "Calm", tracks)
		if err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if d.ID() == "" || d.UserID() != user.ID() {
			t.Errorf("expected persisted detection owned by user, got %q %q", d.ID(), d.UserID())
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "detections")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
}
