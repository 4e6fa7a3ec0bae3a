package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir string `toml:"watch_dir"`
	LogDir   string `toml:"log_dir"`
}

// Session contains the session reconstruction policy.
type Session struct {
	MaxPhotos        int      `toml:"max_photos_per_session"`
	WindowMinutes    int      `toml:"max_minutes_window"`
	BackupFolderName string   `toml:"backup_folder_name"`
	ErrorFolderName  string   `toml:"error_folder_name"`
	DoneFolderName   string   `toml:"done_folder_name"`
	SupportedFormats []string `toml:"supported_formats"`
}

// Watcher contains file detection timing and startup behavior.
type Watcher struct {
	SettleSeconds      int  `toml:"settle_seconds"`
	PollMillis         int  `toml:"poll_millis"`
	StartupScanMinutes int  `toml:"startup_scan_minutes"`
	StopOnError        bool `toml:"stop_on_error"`
}

// Trigger contains marker payload parsing settings.
type Trigger struct {
	PatientIDPrefix string `toml:"patient_id_prefix"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for darkroom.
//
// Configuration sections by subsystem:
//   - Paths: the watched incoming folder and the daemon log directory
//   - Session: window/count bounds and the reserved folder names
//   - Watcher: stabilization timing and startup scan depth
//   - Trigger: patient id prefix stripped from decoded markers
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Session Session `toml:"session"`
	Watcher Watcher `toml:"watcher"`
	Trigger Trigger `toml:"trigger"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/darkroom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("darkroom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to. The watch
// folder itself is never created: a missing watch folder is an operator error
// and is reported by Validate-time stat in the daemon instead.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		c.BackupDir(),
		c.ErrorDir(),
		c.DoneDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BackupDir returns the backup folder inside the watch folder.
func (c *Config) BackupDir() string {
	return filepath.Join(c.Paths.WatchDir, c.Session.BackupFolderName)
}

// ErrorDir returns the quarantine folder inside the watch folder.
func (c *Config) ErrorDir() string {
	return filepath.Join(c.Paths.WatchDir, c.Session.ErrorFolderName)
}

// DoneDir returns the done-marker folder inside the watch folder.
func (c *Config) DoneDir() string {
	return filepath.Join(c.Paths.WatchDir, c.Session.DoneFolderName)
}

// Window returns the session look-back window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Session.WindowMinutes) * time.Minute
}

// SettleWindow returns the quiescence interval a file must hold before it is
// considered fully written.
func (c *Config) SettleWindow() time.Duration {
	return time.Duration(c.Watcher.SettleSeconds) * time.Second
}

// PollInterval returns the stabilization poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollMillis) * time.Millisecond
}

// StartupScanWindow returns how far back the startup scan reaches.
func (c *Config) StartupScanWindow() time.Duration {
	return time.Duration(c.Watcher.StartupScanMinutes) * time.Minute
}

// FormatSet returns the supported extensions as a lowercase lookup set.
func (c *Config) FormatSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Session.SupportedFormats))
	for _, ext := range c.Session.SupportedFormats {
		set[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return set
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	formats := make([]string, 0, len(c.Session.SupportedFormats))
	for _, ext := range c.Session.SupportedFormats {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		formats = append(formats, ext)
	}
	c.Session.SupportedFormats = formats

	c.Trigger.PatientIDPrefix = strings.TrimSpace(c.Trigger.PatientIDPrefix)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
