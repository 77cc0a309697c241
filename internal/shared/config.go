package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// maxSeedsPerRequest is the number of seed tracks the recommendations endpoint accepts.
const maxSeedsPerRequest = 5

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     TargetConfig      `toml:"spotify"`
	Recommend   RecommendConfig   `toml:"recommend"`
	Server      ServerConfig      `toml:"server"`
	HTTP        HTTPConfig        `toml:"http"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the persisted OAuth2 token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenType    string    `toml:"token_type"`
	Expiry       time.Time `toml:"expiry"`
}

// TargetConfig names the account and playlist a fill run works against.
type TargetConfig struct {
	User        string `toml:"user"`
	Destination string `toml:"destination"`
}

// RecommendConfig tunes seed sampling and the size of the final track list.
type RecommendConfig struct {
	SeedWindow     int    `toml:"seed_window"`
	ChunkSize      int    `toml:"chunk_size"`
	MaxChunks      int    `toml:"max_chunks"`
	PerChunk       int    `toml:"per_chunk"`
	MaxTracks      int    `toml:"max_tracks"`
	Market         string `toml:"market"`
	IncludePrivate bool   `toml:"include_private"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// HTTPConfig controls the HTTP client used for Spotify API calls.
type HTTPConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the configured client timeout, or zero for none.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Map returns the client credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored token, or nil when none has been saved yet.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

// Update copies token into the config.
//
// A refresh response may omit the refresh token, in which case the stored one is kept.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidInput)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry
	return nil
}

// Validate reports configuration that would make a fill run fail before any API call.
func (c *Config) Validate() error {
	creds := c.Credentials.Spotify
	if isPlaceholder(creds.ClientID) || isPlaceholder(creds.ClientSecret) {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}

	r := c.Recommend
	switch {
	case r.SeedWindow <= 0:
		return fmt.Errorf("%w: recommend.seed_window must be positive", ErrInvalidConfig)
	case r.ChunkSize <= 0 || r.ChunkSize > maxSeedsPerRequest:
		return fmt.Errorf("%w: recommend.chunk_size must be between 1 and %d", ErrInvalidConfig, maxSeedsPerRequest)
	case r.MaxChunks <= 0:
		return fmt.Errorf("%w: recommend.max_chunks must be positive", ErrInvalidConfig)
	case r.PerChunk <= 0 || r.PerChunk > 100:
		return fmt.Errorf("%w: recommend.per_chunk must be between 1 and 100", ErrInvalidConfig)
	case r.MaxTracks <= 0:
		return fmt.Errorf("%w: recommend.max_tracks must be positive", ErrInvalidConfig)
	}

	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: http.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// isPlaceholder reports whether v is unset or still the value shipped in the example config.
func isPlaceholder(v string) bool {
	return v == "" || strings.HasPrefix(v, "your_")
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML. The file holds tokens, so it is only readable by the owner.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
