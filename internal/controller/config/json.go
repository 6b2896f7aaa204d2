package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mlevkov/camlink/internal/flagx"
	"github.com/mlevkov/camlink/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON config
// files; after unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	LinkDevice          string         `json:"link_device"`
	LinkBaud            int            `json:"link_baud"`
	ModemDevice         string         `json:"modem_device"`
	ModemBaud           int            `json:"modem_baud"`
	ImageDir            string         `json:"image_dir"`
	UploadBaseURL       string         `json:"upload_base_url"`
	UploadAuthToken     string         `json:"upload_auth_token"`
	IdleTimeout         timex.Duration `json:"idle_timeout"`
	RetryGrace          timex.Duration `json:"retry_grace"`
	LoopTick            timex.Duration `json:"loop_tick"`
	AutoCaptureInterval timex.Duration `json:"auto_capture_interval"`
	TelemetryInterval   timex.Duration `json:"telemetry_interval"`
	ModemCmdTimeout     timex.Duration `json:"modem_cmd_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.LinkDevice = c.LinkDevice
	config.LinkBaud = c.LinkBaud
	config.ModemDevice = c.ModemDevice
	config.ModemBaud = c.ModemBaud
	config.ImageDir = c.ImageDir
	config.UploadBaseURL = c.UploadBaseURL
	config.UploadAuthToken = c.UploadAuthToken
	config.IdleTimeout = time.Duration(c.IdleTimeout.Duration)
	config.RetryGrace = time.Duration(c.RetryGrace.Duration)
	config.LoopTick = time.Duration(c.LoopTick.Duration)
	config.AutoCaptureInterval = time.Duration(c.AutoCaptureInterval.Duration)
	config.TelemetryInterval = time.Duration(c.TelemetryInterval.Duration)
	config.ModemCmdTimeout = time.Duration(c.ModemCmdTimeout.Duration)
}
