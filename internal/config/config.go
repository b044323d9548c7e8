// Package config resolves jiractl settings from the config file and
// JIRA_* environment variables, environment winning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "JIRA"

	// AuthTypeBearer sends the API token as a Bearer header (personal
	// access tokens on Data Center). AuthTypeBasic sends
	// base64(username:token), the Cloud convention.
	AuthTypeBearer = "bearer"
	AuthTypeBasic  = "basic"
)

// Config holds everything jiractl needs to reach a Jira instance.
type Config struct {
	URL            string `yaml:"url" mapstructure:"url"`
	Username       string `yaml:"username,omitempty" mapstructure:"username"`
	APIToken       string `yaml:"api_token,omitempty" mapstructure:"api_token"`
	AuthType       string `yaml:"auth_type,omitempty" mapstructure:"auth_type"`
	ProjectsFilter string `yaml:"projects_filter,omitempty" mapstructure:"projects_filter"`
}

// Dir is the directory holding config.yaml and the session cookie file.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "jiractl")
}

func path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Exists reports whether a config file has been written.
func Exists() bool {
	_, err := os.Stat(path())
	return err == nil
}

// Load reads the config file (if present) and layers JIRA_* environment
// variables on top. JIRA_URL is the only hard requirement.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// AutomaticEnv alone is not enough for Unmarshal: keys that only exist
	// in the environment must be bound explicitly.
	for _, key := range []string{"url", "username", "api_token", "auth_type", "projects_filter"} {
		_ = v.BindEnv(key)
	}
	v.SetDefault("auth_type", AuthTypeBearer)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", path(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.URL = strings.TrimRight(cfg.URL, "/")
	cfg.AuthType = strings.ToLower(cfg.AuthType)
	if cfg.AuthType == "" {
		cfg.AuthType = AuthTypeBearer
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("jira URL not configured: set JIRA_URL or run 'jiractl config'")
	}
	return &cfg, nil
}

// Save writes the config file with owner-only permissions; it holds the API
// token.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path(), data, 0600)
}

// RunSetup walks through an interactive form and persists the result.
// Existing values are offered as defaults.
func RunSetup() (*Config, error) {
	// Read the file directly rather than through Load: a half-filled config
	// (no URL yet) should still prefill the form.
	cfg := Config{AuthType: AuthTypeBearer}
	if data, err := os.ReadFile(path()); err == nil {
		_ = yaml.Unmarshal(data, &cfg)
	}
	if cfg.AuthType == "" {
		cfg.AuthType = AuthTypeBearer
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Jira URL").
				Placeholder("https://jira.company.com").
				Value(&cfg.URL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("URL must start with http:// or https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Username (for Basic auth, optional)").
				Placeholder("you@company.com").
				Value(&cfg.Username),
		).Title("Jira Connection"),

		huh.NewGroup(
			huh.NewInput().
				Title("API Token (leave empty for SSO cookie login)").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.APIToken),
			huh.NewSelect[string]().
				Title("Token auth type").
				Options(
					huh.NewOption("Bearer (personal access token)", AuthTypeBearer),
					huh.NewOption("Basic (username + token)", AuthTypeBasic),
				).
				Value(&cfg.AuthType),
		).Title("Authentication"),

		huh.NewGroup(
			huh.NewInput().
				Title("Default project filter (comma-separated keys, optional)").
				Placeholder("PROJ,OPS").
				Value(&cfg.ProjectsFilter),
		).Title("Defaults"),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	cfg.URL = strings.TrimRight(cfg.URL, "/")

	if err := Save(&cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("\nConfig saved to %s\n", path())
	return &cfg, nil
}
