// Package config handles configuration for the controller component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the camlink controller.
//
// Fields:
//   - LinkDevice: serial device of the camera link; empty means autodetect.
//   - LinkBaud: camera link baud rate.
//   - ModemDevice / ModemBaud: serial settings for the cellular modem.
//   - ImageDir: directory received images are stored in.
//   - UploadBaseURL: ingest endpoint images are posted to.
//   - UploadAuthToken: optional bearer token sent with each upload.
//   - IdleTimeout: link silence after which a transfer is abandoned.
//   - RetryGrace: pause before re-sending the trigger after a timeout.
//   - LoopTick: scheduler iteration period.
//   - AutoCaptureInterval / TelemetryInterval: periodic work cadence.
//   - ModemCmdTimeout: per-AT-command reply deadline.
type Config struct {
	LinkDevice          string
	LinkBaud            int
	ModemDevice         string
	ModemBaud           int
	ImageDir            string
	UploadBaseURL       string
	UploadAuthToken     string
	IdleTimeout         time.Duration
	RetryGrace          time.Duration
	LoopTick            time.Duration
	AutoCaptureInterval time.Duration
	TelemetryInterval   time.Duration
	ModemCmdTimeout     time.Duration
}

// LoadDefaults populates Config with development defaults. Serial devices
// and the upload endpoint are deployment-specific and should be overridden.
func (c *Config) LoadDefaults() {
	c.LinkDevice = ""
	c.LinkBaud = 115200
	c.ModemDevice = "/dev/ttyUSB2"
	c.ModemBaud = 115200
	c.ImageDir = "images"
	c.UploadBaseURL = "http://127.0.0.1:8080/upload"
	c.UploadAuthToken = ""
	c.IdleTimeout = 30 * time.Second
	c.RetryGrace = 2 * time.Second
	c.LoopTick = 20 * time.Millisecond
	c.AutoCaptureInterval = 1 * time.Hour
	c.TelemetryInterval = 30 * time.Second
	c.ModemCmdTimeout = 5 * time.Second
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
