package config

import (
	"flag"
	"os"
	"time"

	"github.com/mlevkov/camlink/internal/flagx"
)

// parseFlags populates selected controller Config fields from command-line
// flags.
//
// Supported flags (short forms):
//
//	-l string   camera link serial device (empty = autodetect)
//	-m string   modem serial device
//	-d string   image storage directory
//	-u string   upload base URL
//	-k string   upload bearer token
//	-i int      receive idle timeout, seconds
//	-a int      auto-capture interval, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-l", "-m", "-d", "-u", "-k", "-i", "-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.LinkDevice, "l", config.LinkDevice, "camera link serial device")
	fs.StringVar(&config.ModemDevice, "m", config.ModemDevice, "modem serial device")
	fs.StringVar(&config.ImageDir, "d", config.ImageDir, "image storage directory")
	fs.StringVar(&config.UploadBaseURL, "u", config.UploadBaseURL, "upload base URL")
	fs.StringVar(&config.UploadAuthToken, "k", config.UploadAuthToken, "upload bearer token")

	idleTimeout := fs.Int("i", int(config.IdleTimeout.Seconds()), "receive idle timeout (in seconds)")
	autoCapture := fs.Int("a", int(config.AutoCaptureInterval.Minutes()), "auto-capture interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.IdleTimeout = time.Duration(*idleTimeout) * time.Second
	config.AutoCaptureInterval = time.Duration(*autoCapture) * time.Minute
}
