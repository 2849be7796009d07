package shared

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel filters lower levels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("quiet")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("written")

		if got := mustRead(t, path); !strings.Contains(got, "written") {
			t.Errorf("expected log file to contain entry, got %q", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected 36 character uuid, got %d", len(a))
	}
}

func TestOpenBrowser(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("http://example.com"); err == nil {
			t.Error("expected unsupported platform error")
		}
	})

	t.Run("command per platform", func(t *testing.T) {
		tests := []struct {
			goos string
			want []string
		}{
			{"darwin", []string{"open", "https://p.example/a.mp3"}},
			{"linux", []string{"xdg-open", "https://p.example/a.mp3"}},
			{"windows", []string{"rundll32", "url.dll,FileProtocolHandler", "https://p.example/a.mp3"}},
		}

		for _, tt := range tests {
			getRuntime = func() string { return tt.goos }
			cmd, err := BrowserCommand("https://p.example/a.mp3")
			if err != nil {
				t.Fatalf("%s: %v", tt.goos, err)
			}
			if !slices.Equal(cmd.Args, tt.want) {
				t.Errorf("%s: got %v, want %v", tt.goos, cmd.Args, tt.want)
			}
		}
	})
}
