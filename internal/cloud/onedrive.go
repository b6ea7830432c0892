package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// ErrNotAuthenticated is returned when an operation needs a OneDrive
// token and none is cached.
var ErrNotAuthenticated = errors.New("onedrive: not authenticated")

// OneDriveConfig configures the OneDrive store. RedirectURL defaults to
// the local loopback used by the device sign-in flow.
type OneDriveConfig struct {
	ClientID    string `yaml:"client_id" json:"client_id"`
	RedirectURL string `yaml:"redirect_url,omitempty" json:"redirect_url,omitempty"`
}

// Validate checks if the configuration is valid.
func (c *OneDriveConfig) Validate() error {
	if c.ClientID == "" {
		return errors.New("onedrive: client_id is required")
	}
	return nil
}

// OneDriveStore mirrors files into the signed-in user's OneDrive via the
// Microsoft Graph API. Tokens are cached on disk and refreshed through
// the oauth2 token source.
type OneDriveStore struct {
	oauth      *oauth2.Config
	tokenPath  string
	token      *oauth2.Token
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOneDriveStore creates a store caching tokens under configDir. A
// previously cached token is loaded if present; otherwise the store
// reports unauthenticated until Authenticate completes.
func NewOneDriveStore(cfg OneDriveConfig, configDir string, logger zerolog.Logger) (*OneDriveStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = "http://localhost:8400/callback"
	}

	s := &OneDriveStore{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: redirect,
			Scopes:      []string{"Files.ReadWrite", "offline_access", "User.Read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
				TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
			},
		},
		tokenPath: filepath.Join(configDir, "onedrive_token.json"),
		logger:    logger.With().Str("component", "onedrive_store").Logger(),
	}

	if err := s.loadToken(); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("failed to load cached token")
	}
	return s, nil
}

func (s *OneDriveStore) loadToken() error {
	data, err := os.ReadFile(s.tokenPath)
	if err != nil {
		return err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("parse cached token: %w", err)
	}
	s.token = &token
	s.logger.Debug().Msg("loaded cached token")
	return nil
}

func (s *OneDriveStore) saveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.tokenPath), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	s.token = token
	return nil
}

// AuthURL returns the browser URL that starts the sign-in flow.
func (s *OneDriveStore) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticate exchanges the authorization code from the sign-in redirect
// for a token and caches it.
func (s *OneDriveStore) Authenticate(ctx context.Context, code string) error {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("onedrive: exchange code: %w", err)
	}
	if err := s.saveToken(token); err != nil {
		return err
	}
	s.logger.Info().Msg("authenticated with onedrive")
	return nil
}

// SignOut discards the cached token.
func (s *OneDriveStore) SignOut() error {
	s.token = nil
	if err := os.Remove(s.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("onedrive: remove token: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is cached. A stale token still
// counts; the token source refreshes it on first use.
func (s *OneDriveStore) IsAuthenticated() bool {
	return s.token != nil && s.token.RefreshToken != ""
}

// client returns an HTTP client that injects and refreshes the token,
// persisting any refreshed token back to the cache.
func (s *OneDriveStore) client(ctx context.Context) (*http.Client, error) {
	if s.token == nil {
		return nil, ErrNotAuthenticated
	}
	if s.httpClient != nil {
		return s.httpClient, nil
	}

	src := s.oauth.TokenSource(ctx, s.token)
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(s.token, tokenSaver{src: src, store: s}))
	return s.httpClient, nil
}

// tokenSaver persists refreshed tokens back to the on-disk cache.
type tokenSaver struct {
	src   oauth2.TokenSource
	store *OneDriveStore
}

func (t tokenSaver) Token() (*oauth2.Token, error) {
	token, err := t.src.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != t.store.token.AccessToken {
		if err := t.store.saveToken(token); err != nil {
			t.store.logger.Warn().Err(err).Msg("failed to persist refreshed token")
		}
	}
	return token, nil
}

// itemURL builds the Graph drive-item URL for a remote path. Segments
// are escaped individually so folder separators survive.
func itemURL(remotePath, suffix string) string {
	segments := strings.Split(remotePath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/me/drive/root:/%s:/%s", graphBaseURL, strings.Join(segments, "/"), suffix)
}

// Upload copies a local file to the given path in the user's drive,
// creating intermediate folders as needed.
func (s *OneDriveStore) Upload(ctx context.Context, localPath, remotePath string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("onedrive: open %s: %w", localPath, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, itemURL(remotePath, "content"), f)
	if err != nil {
		return fmt.Errorf("onedrive: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("onedrive: upload %s: %w", remotePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("onedrive: upload %s: status %d: %s", remotePath, resp.StatusCode, body)
	}

	s.logger.Debug().Str("remote_path", remotePath).Msg("uploaded file")
	return nil
}

// Download copies a remote file to the given local path.
func (s *OneDriveStore) Download(ctx context.Context, remotePath, localPath string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemURL(remotePath, "content"), nil)
	if err != nil {
		return fmt.Errorf("onedrive: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("onedrive: download %s: %w", remotePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("onedrive: download %s: status %d", remotePath, resp.StatusCode)
	}

	return writeLocal(localPath, resp.Body)
}

// UserDisplayName fetches the signed-in user's display name, mostly as a
// connection check.
func (s *OneDriveStore) UserDisplayName(ctx context.Context) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphBaseURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("onedrive: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("onedrive: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("onedrive: fetch profile: status %d", resp.StatusCode)
	}

	var profile struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("onedrive: parse profile: %w", err)
	}
	return profile.DisplayName, nil
}
