package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		problems = append(problems, "paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}

	if c.Session.MaxPhotos <= 0 {
		problems = append(problems, "session.max_photos_per_session must be positive")
	}
	if c.Session.WindowMinutes <= 0 {
		problems = append(problems, "session.max_minutes_window must be positive")
	}
	if len(c.Session.SupportedFormats) == 0 {
		problems = append(problems, "session.supported_formats must list at least one extension")
	}

	// Reserved folders live inside the watch folder; the leading underscore is
	// what keeps the watcher from rediscovering files placed in them.
	for name, value := range map[string]string{
		"session.backup_folder_name": c.Session.BackupFolderName,
		"session.error_folder_name":  c.Session.ErrorFolderName,
		"session.done_folder_name":   c.Session.DoneFolderName,
	} {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			problems = append(problems, name+" must be set")
			continue
		}
		if !strings.HasPrefix(trimmed, "_") && !strings.HasPrefix(trimmed, ".") {
			problems = append(problems, fmt.Sprintf("%s must start with '_' or '.' (got %q)", name, trimmed))
		}
	}

	if c.Watcher.SettleSeconds < 0 {
		problems = append(problems, "watcher.settle_seconds must not be negative")
	}
	if c.Watcher.PollMillis <= 0 {
		problems = append(problems, "watcher.poll_millis must be positive")
	}
	if c.Watcher.StartupScanMinutes < 0 {
		problems = append(problems, "watcher.startup_scan_minutes must not be negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json (got %q)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
