package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/player"
	"github.com/desertthunder/moodtunes/internal/services"
	tu "github.com/desertthunder/moodtunes/internal/testing"
)

// backendServer answers /detect with detectBody and /recommend with two tracks, the second without a preview.
func backendServer(t *testing.T, detectBody string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/detect":
			if _, _, err := r.FormFile("image"); err != nil {
				t.Errorf("expected image field: %v", err)
			}
			w.Write([]byte(detectBody))
		case "/recommend":
			var req struct {
				Emotion string `json:"emotion"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("expected JSON body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"emotion": req.Emotion,
				"songs": []map[string]string{
					{"name": "Song A", "artist": "X", "album": "http://x/a.jpg", "preview": "http://x/a.mp3"},
					{"name": "Song B", "artist": "Y"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDetectRecommendPlay(t *testing.T) {
	ctx := context.Background()
	img := models.NewPendingImage([]byte("\x89PNG\r\n\x1a\n"), "image/png", "face.png")

	t.Run("happy path through playback", func(t *testing.T) {
		ts := backendServer(t, `{"emotion":"Happy"}`)
		backend := services.NewDetectionService(services.NewAPIService(ts.URL, nil), nil)
		rec := NewRecommender(backend, RecommenderOpts{})

		result, err := rec.DetectAndRecommend(ctx, img, nil)
		if err != nil {
			t.Fatalf("DetectAndRecommend failed: %v", err)
		}
		if result.Label != "Happy" || result.Tracks.Len() != 2 {
			t.Fatalf("expected Happy with 2 tracks, got %q with %d", result.Label, result.Tracks.Len())
		}

		out := &tu.FakeOutput{}
		session := player.NewSession(out, nil)
		session.Replace(rec.Snapshot().Tracks)

		session.PlayAt(ctx, 0)
		if cursor, _ := session.Cursor(); cursor != 0 || out.Source() != "http://x/a.mp3" {
			t.Fatalf("expected cursor 0 on a.mp3, got %d on %q", cursor, out.Source())
		}

		session.PlayAt(ctx, 1)
		if cursor, _ := session.Cursor(); cursor != 1 {
			t.Errorf("expected cursor 1, got %d", cursor)
		}
		if out.Source() != "http://x/a.mp3" {
			t.Errorf("expected source untouched for a track without preview, got %q", out.Source())
		}
		if out.Playing() {
			t.Error("expected playback to stop on a track without preview")
		}
	})

	t.Run("missing emotion is neutral", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"emotion":null}`, `{"emotion":""}`} {
			ts := backendServer(t, body)
			backend := services.NewDetectionService(services.NewAPIService(ts.URL, nil), nil)
			rec := NewRecommender(backend, RecommenderOpts{})

			result, err := rec.DetectAndRecommend(ctx, img, nil)
			if err != nil {
				t.Fatalf("%s: DetectAndRecommend failed: %v", body, err)
			}
			if result.Label != "Neutral" {
				t.Errorf("%s: expected Neutral, got %q", body, result.Label)
			}
		}
	})
}
