// Package config loads the layered JSON configuration. Sources merge
// in a fixed precedence order: built-in defaults, the optional system
// and home files, each explicitly requested file, then the selected
// account's section. The result is an immutable value produced once
// per invocation; nothing here is process-wide mutable state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the merged application configuration.
type Config struct {
	IMAPHostname string `mapstructure:"imap_hostname"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPSSL      bool   `mapstructure:"imap_ssl"`
	IMAPUsername string `mapstructure:"imap_username"`
	IMAPPassword string `mapstructure:"imap_password"`
	IMAPMailbox  string `mapstructure:"imap_mailbox"`

	// Account names the cache subdirectory and the keyring entry.
	// Empty falls back to IMAPUsername; see AccountName.
	Account string `mapstructure:"account"`

	CacheDir       string `mapstructure:"cache_dir"`
	CacheEnabled   bool   `mapstructure:"cache_enabled"`
	CacheThreshold int64  `mapstructure:"cache_threshold"`
	FileEncoding   string `mapstructure:"file_encoding"`

	Verbose         int    `mapstructure:"verbose"`
	SuppressSummary bool   `mapstructure:"suppress_summary"`
	LineLimit       int    `mapstructure:"line_limit"`
	LineFormat      string `mapstructure:"line_format"`
	DateFormat      string `mapstructure:"date_format"`

	NormalizeEnabled bool   `mapstructure:"normalize_enabled"`
	PrintEncoding    string `mapstructure:"print_encoding"`

	// Viewers maps MIME type patterns ("application/pdf", "image/*")
	// to viewer command lines; %f stands for the extracted file.
	Viewers map[string][]string `mapstructure:"viewers"`
}

// AccountName returns the identifier used for the cache subdirectory
// and the keyring entry.
func (c *Config) AccountName() string {
	if c.Account != "" {
		return c.Account
	}
	return c.IMAPUsername
}

// CacheRoot returns cache_dir with a leading ~ expanded.
func (c *Config) CacheRoot() string {
	return ExpandHome(c.CacheDir)
}

// Load merges configuration for one invocation. The optional system
// and home files are skipped when absent; each path in paths must
// exist. A non-empty account selects a section under "accounts" to
// overlay last, and naming an account with no section is an error.
func Load(paths []string, account string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	for _, path := range optionalFiles() {
		if err := mergeFile(v, path); err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, err
		}
	}
	for _, path := range paths {
		if err := mergeFile(v, ExpandHome(path)); err != nil {
			return nil, err
		}
	}

	if account != "" {
		accounts := v.GetStringMap("accounts")
		section, ok := accounts[strings.ToLower(account)]
		if !ok {
			return nil, fmt.Errorf("no settings for account %q in configuration", account)
		}
		overlay, ok := section.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("account %q: section is not an object", account)
		}
		if err := v.MergeConfigMap(overlay); err != nil {
			return nil, fmt.Errorf("merging account %q: %w", account, err)
		}
		v.Set("account", account)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("imap_hostname", "imap.gmail.com")
	v.SetDefault("imap_port", 993)
	v.SetDefault("imap_ssl", true)
	v.SetDefault("imap_username", "")
	v.SetDefault("imap_password", "")
	v.SetDefault("imap_mailbox", "INBOX")
	v.SetDefault("account", "")
	v.SetDefault("cache_dir", "~/.mailcheck/")
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_threshold", 1048576)
	v.SetDefault("file_encoding", "utf-8")
	v.SetDefault("verbose", 0)
	v.SetDefault("suppress_summary", false)
	v.SetDefault("line_limit", 120)
	v.SetDefault("line_format", "[$status] $uid <>    <$sender_name>")
	v.SetDefault("date_format", "2006-01-02 15:04")
	v.SetDefault("normalize_enabled", true)
	v.SetDefault("print_encoding", "ascii")
}

func optionalFiles() []string {
	files := []string{"/etc/mailcheck.json"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".mailcheck.json"))
	}
	return files
}

func mergeFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
