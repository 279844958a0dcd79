package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// AppName is used for XDG directories and the lock file name.
const AppName = "unavoidables"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig   `toml:"credentials"`
	Spotify     PlaylistConfig      `toml:"spotify"`
	Scraper     ScraperConfig       `toml:"scraper"`
	Matching    MatchingConfig      `toml:"matching"`
	Database    DatabaseConfig      `toml:"database"`
	Export      ExportConfig        `toml:"export"`
	Server      ServerConfig        `toml:"server"`
	Overrides   map[string][]string `toml:"overrides"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenType    string    `toml:"token_type"`
	Expiry       time.Time `toml:"expiry"`
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored OAuth token, or nil when none has been saved yet.
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

// Update stores a freshly issued token.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidArgument)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry
	return nil
}

// PlaylistConfig controls searching and the synchronized playlist.
type PlaylistConfig struct {
	UserID            string  `toml:"user_id"`
	PlaylistName      string  `toml:"playlist_name"`
	Position          int     `toml:"position"`
	BatchSize         int     `toml:"batch_size"`
	SearchLimit       int     `toml:"search_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Description       string  `toml:"description"`
}

// ScraperConfig controls where and how the chart page is fetched.
type ScraperConfig struct {
	BaseURL   string `toml:"base_url"`
	Decade    int    `toml:"decade"`
	CachePath string `toml:"cache_path"`
	Timeout   int    `toml:"timeout_seconds"`
	UserAgent string `toml:"user_agent"`
}

// MatchingConfig holds the candidate acceptance thresholds.
type MatchingConfig struct {
	MinScore int `toml:"min_score"`
	MinSum   int `toml:"min_sum"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ExportConfig controls the flat CSV copy written after every save.
type ExportConfig struct {
	CSVPath string `toml:"csv_path"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to path. Tokens are stored, so the file is private.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// DatabasePath returns the configured database path or the XDG data location.
func (c *Config) DatabasePath() (string, error) {
	return resolvePath(c.Database.Path, xdg.DataFile, "catalog.db")
}

// CSVPath returns the configured CSV export path or the XDG data location.
func (c *Config) CSVPath() (string, error) {
	return resolvePath(c.Export.CSVPath, xdg.DataFile, "catalog.csv")
}

// PageCachePath returns the configured scraper cache path or the XDG cache location.
func (c *Config) PageCachePath() (string, error) {
	return resolvePath(c.Scraper.CachePath, xdg.CacheFile, "local_page.html")
}

func resolvePath(configured string, locate func(string) (string, error), name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	path, err := locate(filepath.Join(AppName, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s location: %w", name, err)
	}
	return path, nil
}
