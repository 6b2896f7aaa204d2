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
// parsing both string values such as "10s" and integer nanoseconds.
type JsonConfig struct {
	Device         string         `json:"device"`
	Baud           int            `json:"baud"`
	CaptureCommand string         `json:"capture_command"`
	SourceDir      string         `json:"source_dir"`
	ArchiveDir     string         `json:"archive_dir"`
	AckTimeout     timex.Duration `json:"ack_timeout"`
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

	config.Device = c.Device
	config.Baud = c.Baud
	config.CaptureCommand = c.CaptureCommand
	config.SourceDir = c.SourceDir
	config.ArchiveDir = c.ArchiveDir
	config.AckTimeout = time.Duration(c.AckTimeout.Duration)
}
