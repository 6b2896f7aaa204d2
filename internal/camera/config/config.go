// Package config handles configuration for the camera component, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the camlink camera.
//
// Fields:
//   - Device: serial device of the controller link; empty means autodetect.
//   - Baud: link baud rate.
//   - CaptureCommand: capture tool template with {width}/{quality}/{output}
//     placeholders; empty selects the directory source instead.
//   - SourceDir: directory of .jpg files used when no capture command is set.
//   - ArchiveDir: local directory every captured image is copied into.
//   - AckTimeout: per-chunk acknowledgement deadline during a transfer.
type Config struct {
	Device         string
	Baud           int
	CaptureCommand string
	SourceDir      string
	ArchiveDir     string
	AckTimeout     time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Device = ""
	c.Baud = 115200
	c.CaptureCommand = ""
	c.SourceDir = "source"
	c.ArchiveDir = "archive"
	c.AckTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
