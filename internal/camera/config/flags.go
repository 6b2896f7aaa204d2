package config

import (
	"flag"
	"os"
	"time"

	"github.com/mlevkov/camlink/internal/flagx"
)

// parseFlags populates selected camera Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-l string   controller link serial device (empty = autodetect)
//	-x string   capture command template
//	-s string   source image directory
//	-r string   archive directory
//	-t int      per-chunk ack timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-l", "-x", "-s", "-r", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Device, "l", config.Device, "controller link serial device")
	fs.StringVar(&config.CaptureCommand, "x", config.CaptureCommand, "capture command template")
	fs.StringVar(&config.SourceDir, "s", config.SourceDir, "source image directory")
	fs.StringVar(&config.ArchiveDir, "r", config.ArchiveDir, "archive directory")

	ackTimeout := fs.Int("t", int(config.AckTimeout.Seconds()), "ack timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AckTimeout = time.Duration(*ackTimeout) * time.Second
}
