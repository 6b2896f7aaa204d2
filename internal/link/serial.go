package link

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.bug.st/serial"
)

// serialReadTimeout keeps hardware reads short so Port.Read honors the
// "return what is available" contract the receive path relies on.
const serialReadTimeout = 20 * time.Millisecond

// Open opens the named serial device at the given baud rate and configures
// it with a short read timeout.
func Open(device string, baud int) (serial.Port, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return port, nil
}

// Autodetect probes the usual device names (/dev/serial0, then ttyUSB*, then
// ttyACM*) and returns the first port that opens, along with its name.
func Autodetect(baud int) (serial.Port, string, error) {
	var candidates []string
	if matches, _ := filepath.Glob("/dev/serial0"); len(matches) > 0 {
		candidates = append(candidates, matches...)
	}
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
		matches, _ := filepath.Glob(pattern)
		sort.Strings(matches)
		candidates = append(candidates, matches...)
	}

	for _, device := range candidates {
		port, err := Open(device, baud)
		if err != nil {
			continue
		}
		return port, device, nil
	}
	return nil, "", fmt.Errorf("no available serial port found")
}
