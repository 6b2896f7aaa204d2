// Package camera implements the sender side of the link: it waits for
// capture triggers on the serial port, produces an image, archives a local
// copy and streams the bytes to the controller chunk by chunk.
package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mlevkov/camlink/internal/wire"
)

// Source produces image bytes for a capture trigger.
type Source interface {
	Capture(ctx context.Context, t wire.Trigger) ([]byte, error)
}

// CommandSource shells out to a capture tool. The command template is split
// on whitespace and the placeholders {width}, {quality} and {output} are
// substituted per capture, e.g.:
//
//	raspistill -w {width} -q {quality} -o {output}
type CommandSource struct {
	Template string
}

func (s *CommandSource) Capture(ctx context.Context, t wire.Trigger) ([]byte, error) {
	out := filepath.Join(os.TempDir(), fmt.Sprintf("capture_%d.jpg", time.Now().UnixNano()))
	defer os.Remove(out)

	parts := strings.Fields(s.Template)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty capture command")
	}
	for i, p := range parts {
		p = strings.ReplaceAll(p, "{width}", strconv.Itoa(t.Width))
		p = strings.ReplaceAll(p, "{quality}", strconv.Itoa(t.Quality))
		p = strings.ReplaceAll(p, "{output}", out)
		parts[i] = p
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	if b, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("capture command: %w: %s", err, strings.TrimSpace(string(b)))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("capture output: %w", err)
	}
	return data, nil
}

// DirSource cycles through the .jpg files of a directory in name order. It
// stands in for real capture hardware on a bench setup.
type DirSource struct {
	Dir string

	next int
}

func (s *DirSource) Capture(ctx context.Context, t wire.Trigger) ([]byte, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".jpg") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("source dir %s has no .jpg files", s.Dir)
	}
	sort.Strings(names)

	name := names[s.next%len(names)]
	s.next++

	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}
	return data, nil
}
