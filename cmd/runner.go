package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/capture"
	"github.com/desertthunder/moodtunes/internal/identity"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/player"
	"github.com/desertthunder/moodtunes/internal/repositories"
	"github.com/desertthunder/moodtunes/internal/services"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/urfave/cli/v3"
)

// Backend is the detection service plus its reachability check.
type Backend interface {
	services.DetectRecommender
	Health(ctx context.Context) error
}

// LoginFunc performs an interactive sign-in and returns the provider's user.
type LoginFunc func(ctx context.Context) (*models.User, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	backend    Backend
	injected   bool // backend supplied by the caller, kept across config reloads
	camera     capture.Camera
	player     player.Output
	login      LoginFunc
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Backend    Backend
	Camera     capture.Camera
	Player     player.Output
	Login      LoginFunc
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
		opts.Config.ApplyEnv()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		backend:    opts.Backend,
		injected:   opts.Backend != nil,
		camera:     opts.Camera,
		player:     opts.Player,
		login:      opts.Login,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.configure()
	return r
}

// Before loads the configuration named by --config and applies --verbose.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	config.ApplyEnv()

	r.config = config
	r.configure()
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.configure()
}

// configure builds config-derived dependencies that were not injected.
func (r *Runner) configure() {
	if !r.injected {
		client := &http.Client{Timeout: r.config.Backend.Timeout()}
		api := services.NewAPIService(r.config.Backend.URL, client).WithRateLimit(r.config.Backend.RequestsPerSecond)
		r.backend = services.NewDetectionService(api, shared.WithLogger(r.logger, "component", "backend"))
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, detectCommand, historyCommand, playCommand, batchCommand, statusCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stores bundles the repositories backed by one database handle.
type stores struct {
	db         *sql.DB
	users      *repositories.UserRepository
	detections *repositories.DetectionRepository
}

func (s *stores) Close() error { return s.db.Close() }

func (r *Runner) openStores() (*stores, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &stores{
		db:         db,
		users:      repositories.NewUserRepository(db),
		detections: repositories.NewDetectionRepository(db),
	}, nil
}

// restoreGate returns an identity gate populated with the persisted signed-in user.
func (r *Runner) restoreGate(ctx context.Context, st *stores) (*identity.Gate, error) {
	gate := identity.NewGate(st.users, r.logger)
	if err := gate.Restore(ctx); err != nil {
		return nil, err
	}
	return gate, nil
}

// requireGate restores the gate and refuses to continue when sign-in is required but nobody is signed in.
func (r *Runner) requireGate(ctx context.Context, st *stores) (*identity.Gate, error) {
	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return nil, err
	}
	if err := gate.Require(r.config.Identity.Required); err != nil {
		return nil, err
	}
	return gate, nil
}

func (r *Runner) newCamera() capture.Camera {
	if r.camera != nil {
		return r.camera
	}
	return capture.NewDeviceCamera(r.config.Capture.Device, r.config.Capture.Width, r.config.Capture.Height)
}

func (r *Runner) newOutput() player.Output {
	if r.player != nil {
		return r.player
	}
	return player.NewOutput(r.config.Player)
}

func (r *Runner) newLogin() (LoginFunc, error) {
	if r.login != nil {
		return r.login, nil
	}

	flow, err := identity.NewOAuthFlow(r.config.Identity, r.config.Server, r.logger)
	if err != nil {
		return nil, err
	}
	return flow.Run, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
