package relay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mlevkov/camlink/internal/shared"
)

// IDDelimiter separates the sensor identifier prefix from the rest of a
// stored filename: "3_1699999999.jpg" → id "3", remote name "1699999999.jpg".
const IDDelimiter = "_"

// Status tracks an upload session through its asynchronous life.
type Status string

const (
	StatusStreaming Status = "streaming" // body handed to the modem, action issued
	StatusCompleted Status = "completed" // action result received
)

// Session is one upload attempt derived from a stored file. HTTPStatus and
// ResponseLength stay zero until the asynchronous action result lands.
type Session struct {
	SourcePath     string
	SensorID       string
	RemoteFilename string
	Status         Status
	HTTPStatus     int
	ResponseLength int
	ResponseBody   []byte
}

// DeriveSession builds an upload session from a stored file's name. A name
// without the identifier delimiter cannot be uploaded: the error is returned
// before any command is issued, and the identifier is never defaulted.
func DeriveSession(path string) (*Session, error) {
	base := filepath.Base(path)
	id, rest, ok := strings.Cut(base, IDDelimiter)
	if !ok || id == "" || rest == "" {
		return nil, fmt.Errorf("%q: %w", base, shared.ErrorMissingIdentifier)
	}
	return &Session{
		SourcePath:     path,
		SensorID:       id,
		RemoteFilename: rest,
		Status:         StatusStreaming,
	}, nil
}

// Succeeded reports whether the carrier-reported status is a 2xx.
func (s *Session) Succeeded() bool {
	return s.HTTPStatus >= 200 && s.HTTPStatus < 300
}
