// Package config loads slack-history settings from a YAML file, environment
// variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/chrisedwards/slack-history/internal/slack"
)

const (
	// AppName names the config directory and file.
	AppName = "slack-history"

	// EnvPrefix prefixes every environment override, e.g.
	// SLACK_HISTORY_SLACK_ACCESS_TOKEN.
	EnvPrefix = "SLACK_HISTORY"
)

// Config holds application configuration loaded from YAML.
type Config struct {
	OutputDir   string        `yaml:"output_dir" mapstructure:"output_dir"`
	MaxMessages int           `yaml:"max_messages" mapstructure:"max_messages"`
	ShowIDs     bool          `yaml:"show_ids" mapstructure:"show_ids"`
	Include     []string      `yaml:"include,omitempty" mapstructure:"include"`
	Exclude     []string      `yaml:"exclude,omitempty" mapstructure:"exclude"`
	Slack       SlackConfig   `yaml:"slack" mapstructure:"slack"`
	OAuth       OAuthConfig   `yaml:"oauth" mapstructure:"oauth"`
	Logging     LoggingConfig `yaml:"logging" mapstructure:"logging"`

	configFile string
}

// SlackConfig holds the Slack app credentials and API endpoint.
type SlackConfig struct {
	AccessToken  string `yaml:"access_token,omitempty" mapstructure:"access_token"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	Scopes       string `yaml:"scopes" mapstructure:"scopes"`
	APIURL       string `yaml:"api_url" mapstructure:"api_url"`
}

// OAuthConfig holds the local callback settings of the OAuth handshake.
type OAuthConfig struct {
	Port         int    `yaml:"port" mapstructure:"port"`
	AuthorizeURL string `yaml:"authorize_url" mapstructure:"authorize_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		OutputDir:   "export",
		MaxMessages: 0,
		ShowIDs:     true,
		Slack: SlackConfig{
			ClientID:     "<YOUR_CLIENT_ID>",
			ClientSecret: "<YOUR_CLIENT_SECRET>",
			Scopes:       slack.DefaultScopes,
			APIURL:       slack.DefaultAPIURL,
		},
		OAuth: OAuthConfig{
			Port:         slack.DefaultCallbackPort,
			AuthorizeURL: slack.DefaultAuthorizeURL,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("max_messages", d.MaxMessages)
	v.SetDefault("show_ids", d.ShowIDs)
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("slack.access_token", "")
	v.SetDefault("slack.client_id", d.Slack.ClientID)
	v.SetDefault("slack.client_secret", d.Slack.ClientSecret)
	v.SetDefault("slack.scopes", d.Slack.Scopes)
	v.SetDefault("slack.api_url", d.Slack.APIURL)
	v.SetDefault("oauth.port", d.OAuth.Port)
	v.SetDefault("oauth.authorize_url", d.OAuth.AuthorizeURL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads configuration. An explicit path must exist; with an empty path
// the default location is tried and a missing file is not an error.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configFile = v.ConfigFileUsed()

	return cfg, nil
}

// ConfigFile returns the path of the file Load read, or "" when only
// defaults and environment were used.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// DefaultConfigPath returns ~/.config/slack-history/slack-history.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", AppName, AppName+".yaml")
}

// Save writes the configuration as YAML. The file may hold a token, so it is
// created with mode 0600.
func (c *Config) Save(path string) error {
	return writeYAML(path, c)
}

// SaveToken stores token as slack.access_token in the file at path, keeping
// every other key of an existing file as written. Values that came from the
// environment are not copied into the file.
func SaveToken(path, token string) error {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("reading config: %w", err)
	}

	section, _ := doc["slack"].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	section["access_token"] = token
	doc["slack"] = section

	return writeYAML(path, doc)
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("setting config permissions: %w", err)
	}
	return nil
}

// Validate checks the configuration and creates the output directory.
// Credentials are checked where they are used, so listing the config with
// placeholders still works.
func (c *Config) Validate() error {
	if err := ValidateNonEmpty(c.OutputDir, "output_dir"); err != nil {
		return err
	}
	if c.MaxMessages < 0 {
		return fmt.Errorf("max_messages must be 0 (unlimited) or positive, got %d", c.MaxMessages)
	}
	if err := ValidatePort(c.OAuth.Port); err != nil {
		return err
	}
	if err := ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid filter pattern %q: %w", p, err)
		}
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

// HandshakeConfig builds the OAuth handshake settings.
func (c *Config) HandshakeConfig() slack.OAuthConfig {
	cfg := slack.DefaultOAuthConfig(c.Slack.ClientID, c.Slack.ClientSecret)
	if c.Slack.Scopes != "" {
		cfg.Scopes = c.Slack.Scopes
	}
	cfg.Port = c.OAuth.Port
	if c.OAuth.AuthorizeURL != "" {
		cfg.AuthorizeURL = c.OAuth.AuthorizeURL
	}
	if c.Slack.APIURL != "" {
		cfg.TokenURL = strings.TrimSuffix(c.Slack.APIURL, "/") + "/oauth.v2.access"
	}
	return cfg
}
