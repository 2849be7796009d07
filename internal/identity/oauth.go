package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/server"
	"github.com/desertthunder/moodtunes/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultLoginTimeout bounds how long [OAuthFlow.Run] waits for the browser callback.
const DefaultLoginTimeout = 5 * time.Minute

// OAuthFlow signs a user in with the authorization code flow.
type OAuthFlow struct {
	config       *oauth2.Config
	userInfoURL  string
	listenAddr   string
	callbackPath string
	timeout      time.Duration
	logger       *log.Logger

	// OpenBrowser presents the consent URL to the user.
	OpenBrowser func(url string) error
}

type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// NewOAuthFlow builds a flow from the identity and callback server settings.
func NewOAuthFlow(cfg shared.IdentityConfig, srv shared.ServerConfig, logger *log.Logger) (*OAuthFlow, error) {
	if cfg.ClientID == "" || cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("%w: identity client_id, auth_url, token_url and userinfo_url are required", shared.ErrMissingConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	path := "/callback"
	if cfg.RedirectURI != "" {
		u, err := url.Parse(cfg.RedirectURI)
		if err != nil {
			return nil, fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
		}
		if u.Path != "" {
			path = u.Path
		}
	}

	return &OAuthFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
		},
		userInfoURL:  cfg.UserInfoURL,
		listenAddr:   srv.Addr(),
		callbackPath: path,
		timeout:      DefaultLoginTimeout,
		logger:       logger,
		OpenBrowser:  shared.OpenBrowser,
	}, nil
}

// WithTimeout overrides [DefaultLoginTimeout].
func (f *OAuthFlow) WithTimeout(d time.Duration) *OAuthFlow {
	f.timeout = d
	return f
}

// Run serves the callback, sends the user to the consent page and returns the signed-in user with its token.
func (f *OAuthFlow) Run(ctx context.Context) (*models.User, error) {
	state := shared.GenerateID()
	config := *f.config

	router := server.NewBasicRouter()
	router.Use(server.Logging(f.logger))
	handler := server.NewOAuthHandler(&config, state, f.callbackPath)
	router.Handler(handler)

	srv, err := server.Listen(f.listenAddr, router)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start callback server: %v", shared.ErrAuthFailed, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if config.RedirectURL == "" {
		config.RedirectURL = "http://" + srv.Addr() + f.callbackPath
	}

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	if err := f.OpenBrowser(authURL); err != nil {
		f.logger.Warn("could not open browser", "error", err)
	}
	f.logger.Info("waiting for sign-in", "url", authURL)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-srv.Errors():
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrAuthFailed, err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return f.FetchUser(ctx, result.Token)
}

// FetchUser reads the provider profile for token and returns an unsaved [models.User] carrying the token.
func (f *OAuthFlow) FetchUser(ctx context.Context, token *oauth2.Token) (*models.User, error) {
	client := f.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: malformed userinfo: %v", shared.ErrAuthFailed, err)
	}

	user := models.NewUser(0, info.Subject, info.Email, info.Name)
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}
	user.SetToken(string(raw))

	return user, nil
}
