package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the directory holding recordings, presets and the catalog.
// SLAUNCH_DATA_DIR overrides the platform default.
//
//   - macOS:   ~/Library/Application Support/slaunch
//   - Linux:   $XDG_DATA_HOME/slaunch or ~/.local/share/slaunch
//   - Windows: %APPDATA%\slaunch
func DataDir() string {
	if dir := os.Getenv("SLAUNCH_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "slaunch")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "slaunch")
		}
		return filepath.Join(home, "AppData", "Roaming", "slaunch")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "slaunch")
		}
		return filepath.Join(home, ".local", "share", "slaunch")
	}
}

// ConfigDir returns the directory holding the configuration file.
func ConfigDir() string {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "slaunch")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "slaunch")
	}
	return DataDir()
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SupportedFormats lists the accepted configuration file extensions.
func SupportedFormats() []string {
	return []string{".toml", ".json", ".yaml", ".yml"}
}

// FindConfigFile returns the first existing config file in ConfigDir, or
// ConfigPath when none exists.
func FindConfigFile() string {
	dir := ConfigDir()
	for _, ext := range SupportedFormats() {
		p := filepath.Join(dir, "config"+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ConfigPath()
}
