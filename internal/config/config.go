package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "studyhub.db"
	DefaultLogName        = "studyhub.log"
	appDir                = "studyhub"
)

type Keymap struct {
	Quit       string `toml:"quit"`
	Add        string `toml:"add"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	Toggle     string `toml:"toggle"`
	Delete     string `toml:"delete"`
	Detail     string `toml:"detail"`
	Confirm    string `toml:"confirm"`
	Cancel     string `toml:"cancel"`
	Edit       string `toml:"edit"`
	NextFilter string `toml:"next_filter"`
	PrevFilter string `toml:"prev_filter"`
}

// Theme holds the accent colors rows are drawn with, one per filter.
type Theme struct {
	Ongoing   string `toml:"ongoing"`
	Missed    string `toml:"missed"`
	Completed string `toml:"completed"`
}

type Email struct {
	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUser     string `toml:"smtp_user"`
	SMTPPassword string `toml:"smtp_password"`
	FromEmail    string `toml:"from_email"`
	DryRun       bool   `toml:"dry_run"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	LogPath       string `toml:"log_path"`
	PhotoDir      string `toml:"photo_dir"`
	DefaultFilter string `toml:"default_filter"`
	Keys          Keymap `toml:"keys"`
	Theme         Theme  `toml:"theme"`
	Email         Email  `toml:"email"`
}

// ResolveConfigPath returns $STUDYHUB_CONFIG if set, otherwise
// config.toml under the user config directory.
func ResolveConfigPath() string {
	if p := os.Getenv("STUDYHUB_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDir, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. Relative paths in the file resolve against the
// config directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(filepath.Dir(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogName
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	return cfg.resolve(filepath.Dir(path)), nil
}

// ApplyEnv loads envFile (missing files are ignored) and lets STUDYHUB_SMTP_*
// variables override the SMTP settings.
func (c *Config) ApplyEnv(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if v := os.Getenv("STUDYHUB_SMTP_HOST"); v != "" {
		c.Email.SMTPHost = v
	}
	if v := os.Getenv("STUDYHUB_SMTP_USER"); v != "" {
		c.Email.SMTPUser = v
	}
	if v := os.Getenv("STUDYHUB_SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("STUDYHUB_FROM_EMAIL"); v != "" {
		c.Email.FromEmail = v
	}
	return nil
}

func (c Config) resolve(base string) Config {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.DBPath = abs(c.DBPath)
	c.LogPath = abs(c.LogPath)
	c.PhotoDir = abs(c.PhotoDir)
	return c
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:        DefaultDBName,
		LogPath:       DefaultLogName,
		PhotoDir:      "photos",
		DefaultFilter: "ongoing",
		Keys: Keymap{
			Quit:       "q",
			Add:        "a",
			Up:         "k",
			Down:       "j",
			Toggle:     " ",
			Delete:     "d",
			Detail:     "enter",
			Confirm:    "enter",
			Cancel:     "esc",
			Edit:       "e",
			NextFilter: "tab",
			PrevFilter: "shift+tab",
		},
		Theme: Theme{
			Ongoing:   "#3B82F6",
			Missed:    "#EF4444",
			Completed: "#22C55E",
		},
		Email: Email{
			SMTPPort: 587,
			DryRun:   true,
		},
	}
}
