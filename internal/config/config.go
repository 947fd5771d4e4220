package config

import (
	"os"
	"path/filepath"
)

// Config represents the complete vibe-replay configuration
type Config struct {
	Version  string          `yaml:"version"`
	Settings Settings        `yaml:"settings"`
	Capture  CaptureSettings `yaml:"capture"`
	Server   ServerSettings  `yaml:"server"`
	Share    ShareSettings   `yaml:"share"`
	MCP      MCPSettings     `yaml:"mcp"`
}

// Settings contains global configuration settings
type Settings struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
	BaseDir  string `yaml:"base_dir,omitempty"`
}

// CaptureSettings bounds what the capture hook stores per event
type CaptureSettings struct {
	MaxCommandLength int `yaml:"max_command_length"`
	MaxOutputBytes   int `yaml:"max_output_bytes"`
	MaxDiffBytes     int `yaml:"max_diff_bytes"`
	MaxDetailBytes   int `yaml:"max_detail_bytes"`
}

// ServerSettings configures the local replay browser
type ServerSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ShareSettings configures publishing replays to a GitHub Pages repo
type ShareSettings struct {
	Repo        string `yaml:"repo,omitempty"`
	OpenBrowser bool   `yaml:"open_browser"`
}

// MCPSettings configures the MCP query server defaults
type MCPSettings struct {
	SessionLimit int `yaml:"session_limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel: "info",
		},
		Capture: CaptureSettings{
			MaxCommandLength: 100,
			MaxOutputBytes:   3000,
			MaxDiffBytes:     3000,
			MaxDetailBytes:   50000,
		},
		Server: ServerSettings{
			Host: "localhost",
			Port: 8765,
		},
		Share: ShareSettings{
			OpenBrowser: true,
		},
		MCP: MCPSettings{
			SessionLimit: 50,
		},
	}
}

// BaseDir resolves the storage base directory, defaulting to ~/.vibe-replay.
func (c *Config) BaseDir() string {
	if c.Settings.BaseDir != "" {
		return c.Settings.BaseDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".vibe-replay"
	}
	return filepath.Join(homeDir, ".vibe-replay")
}
