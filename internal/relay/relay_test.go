package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/shared"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeService records the command sequence the relay issues.
type fakeService struct {
	calls    []string
	body     []byte
	initErr  error
	postErr  error
	readBack []byte
	reads    int
}

func (f *fakeService) Terminate(ctx context.Context) { f.calls = append(f.calls, "TERM") }
func (f *fakeService) Init(ctx context.Context) error {
	f.calls = append(f.calls, "INIT")
	return f.initErr
}
func (f *fakeService) SetParam(ctx context.Context, key, value string) error {
	f.calls = append(f.calls, fmt.Sprintf("PARA %s=%s", key, value))
	return nil
}
func (f *fakeService) BeginData(ctx context.Context, size int64, window time.Duration) error {
	f.calls = append(f.calls, fmt.Sprintf("DATA %d", size))
	return nil
}
func (f *fakeService) WriteBody(p []byte) (int, error) {
	f.body = append(f.body, p...)
	return len(p), nil
}
func (f *fakeService) EndData(ctx context.Context) error {
	f.calls = append(f.calls, "ENDDATA")
	return nil
}
func (f *fakeService) Post(ctx context.Context) error {
	f.calls = append(f.calls, "ACTION")
	return f.postErr
}
func (f *fakeService) ReadBody(ctx context.Context, want int, timeout time.Duration) ([]byte, error) {
	f.reads++
	f.calls = append(f.calls, fmt.Sprintf("READ %d", want))
	if len(f.readBack) > want {
		return f.readBack[:want], nil
	}
	return f.readBack, nil
}

func writeStored(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o660))
	return path
}

func TestDeriveSession(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantID   string
		wantName string
		wantErr  bool
	}{
		{name: "sensor prefix", path: "/images/3_1699999999.jpg", wantID: "3", wantName: "1699999999.jpg"},
		{name: "multi-part remainder", path: "5_shot_2.jpg", wantID: "5", wantName: "shot_2.jpg"},
		{name: "no delimiter", path: "/images/badname.jpg", wantErr: true},
		{name: "empty prefix", path: "_x.jpg", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess, err := DeriveSession(tc.path)
			if tc.wantErr {
				require.ErrorIs(t, err, shared.ErrorMissingIdentifier)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, sess.SensorID)
			require.Equal(t, tc.wantName, sess.RemoteFilename)
		})
	}
}

func TestStart_StreamsAndPosts(t *testing.T) {
	payload := []byte("jpeg-bytes-here")
	path := writeStored(t, "3_1699999999.jpg", payload)

	svc := &fakeService{}
	r := New(svc, testLogger(), Config{
		BaseURL: "http://ingest.example/upload",
		Pacing:  time.Microsecond,
	})

	require.NoError(t, r.Start(context.Background(), path))
	require.True(t, r.InFlight())
	require.Equal(t, payload, svc.body)

	require.Equal(t, []string{
		"TERM",
		"INIT",
		"PARA CID=1",
		"PARA URL=http://ingest.example/upload?id_sensor=3&filename=1699999999.jpg",
		"PARA CONTENT=image/jpeg",
		fmt.Sprintf("DATA %d", len(payload)),
		"ENDDATA",
		"ACTION",
	}, svc.calls)
}

func TestStart_AuthTokenAddsHeaderParam(t *testing.T) {
	path := writeStored(t, "1_a.jpg", []byte("x"))
	svc := &fakeService{}
	r := New(svc, testLogger(), Config{
		BaseURL:   "http://ingest.example/upload",
		AuthToken: "tok123",
		Pacing:    time.Microsecond,
	})

	require.NoError(t, r.Start(context.Background(), path))
	require.Contains(t, svc.calls, "PARA USERDATA=Authorization: Bearer tok123")
}

func TestStart_MissingDelimiterAbortsBeforeAnyCommand(t *testing.T) {
	path := writeStored(t, "badname.jpg", []byte("x"))
	svc := &fakeService{}
	r := New(svc, testLogger(), Config{BaseURL: "http://ingest.example/upload"})

	err := r.Start(context.Background(), path)
	require.ErrorIs(t, err, shared.ErrorMissingIdentifier)
	require.Empty(t, svc.calls, "no command may be issued")
	require.False(t, r.InFlight())
}

func TestStart_InitFailureIsTerminalForAttempt(t *testing.T) {
	path := writeStored(t, "1_a.jpg", []byte("x"))
	svc := &fakeService{initErr: shared.ErrorChannelInit}
	r := New(svc, testLogger(), Config{BaseURL: "http://ingest.example/upload"})

	err := r.Start(context.Background(), path)
	require.ErrorIs(t, err, shared.ErrorChannelInit)
	require.False(t, r.InFlight())
}

func TestHandleLine_SuccessWithBodyReadsBackOnce(t *testing.T) {
	// Asynchronous reply reports 200 with 42 bytes: exactly one read-back.
	path := writeStored(t, "3_1699999999.jpg", []byte("x"))
	svc := &fakeService{readBack: make([]byte, 42)}
	r := New(svc, testLogger(), Config{BaseURL: "http://x/upload", Pacing: time.Microsecond})
	require.NoError(t, r.Start(context.Background(), path))

	handled := r.HandleLine(context.Background(), "+HTTPACTION: 1,200,42")
	require.True(t, handled)
	require.False(t, r.InFlight())
	require.Equal(t, 1, svc.reads)

	sess := r.Last()
	require.NotNil(t, sess)
	require.Equal(t, StatusCompleted, sess.Status)
	require.Equal(t, 200, sess.HTTPStatus)
	require.Equal(t, 42, sess.ResponseLength)
	require.Len(t, sess.ResponseBody, 42)
	require.Equal(t, "TERM", svc.calls[len(svc.calls)-1], "exchange teardown")
}

func TestHandleLine_FailureDoesNotReadBack(t *testing.T) {
	path := writeStored(t, "3_a.jpg", []byte("x"))
	svc := &fakeService{}
	r := New(svc, testLogger(), Config{BaseURL: "http://x/upload", Pacing: time.Microsecond})
	require.NoError(t, r.Start(context.Background(), path))

	require.True(t, r.HandleLine(context.Background(), "+HTTPACTION: 1,601,0"))
	require.Zero(t, svc.reads)
	require.False(t, r.Last().Succeeded())
}

func TestHandleLine_IgnoresUnrelatedLines(t *testing.T) {
	svc := &fakeService{}
	r := New(svc, testLogger(), Config{BaseURL: "http://x/upload"})

	require.False(t, r.HandleLine(context.Background(), "+CREG: 0,1"))
	require.False(t, r.HandleLine(context.Background(), "RING"))
}

func TestHandleLine_LateReplyWithNoOutstandingRequestIsDropped(t *testing.T) {
	svc := &fakeService{}
	r := New(svc, testLogger(), Config{BaseURL: "http://x/upload"})

	require.True(t, r.HandleLine(context.Background(), "+HTTPACTION: 1,200,10"))
	require.Nil(t, r.Last(), "late result never settles a session")
	require.Zero(t, svc.reads)
}
