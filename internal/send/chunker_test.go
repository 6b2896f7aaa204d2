package send

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/receive"
	"github.com/mlevkov/camlink/internal/shared"
	"github.com/mlevkov/camlink/internal/store"
	"github.com/mlevkov/camlink/internal/wire"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestChunker_EndToEnd drives the chunker against the real receive machine
// over an in-memory loopback and checks the stored file is byte-identical.
func TestChunker_EndToEnd(t *testing.T) {
	cameraEnd, controllerEnd := link.Loopback()

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	machine := receive.NewMachine(controllerEnd, st, testLogger(), receive.Config{
		IdleTimeout: 5 * time.Second,
		RetryGrace:  time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopped atomic.Bool
	go func() {
		for !stopped.Load() {
			_ = machine.Poll(ctx, time.Now())
			time.Sleep(time.Millisecond)
		}
	}()
	defer stopped.Store(true)

	payload := make([]byte, 2048+37) // last chunk short
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	chunker := NewChunker(cameraEnd, testLogger(), 2*time.Second)
	require.NoError(t, chunker.Send(ctx, payload, "1699999999.jpg"))

	path, ok := st.Last()
	require.True(t, ok)
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, stored)
}

func TestChunker_NoReadyFailsAttempt(t *testing.T) {
	cameraEnd, _ := link.Loopback()

	chunker := NewChunker(cameraEnd, testLogger(), 30*time.Millisecond)
	err := chunker.Send(context.Background(), []byte("abc"), "x.jpg")
	require.ErrorIs(t, err, shared.ErrorNoReady)
}

func TestChunker_MissingAckFailsWithOffset(t *testing.T) {
	cameraEnd, controllerEnd := link.Loopback()

	// Receiver that goes silent after the first chunk.
	go func() {
		ctx := context.Background()
		_, _ = link.ReadLine(ctx, controllerEnd, time.Second) // header
		_ = link.WriteLine(controllerEnd, wire.TokenReady)

		buf := make([]byte, wire.ChunkSize)
		got := 0
		for got < wire.ChunkSize {
			n, _ := controllerEnd.Read(buf)
			got += n
			time.Sleep(time.Millisecond)
		}
		_ = link.WriteLine(controllerEnd, wire.TokenAck)
		// then silence
	}()

	payload := make([]byte, 3*wire.ChunkSize)
	chunker := NewChunker(cameraEnd, testLogger(), 50*time.Millisecond)
	err := chunker.Send(context.Background(), payload, "x.jpg")
	require.ErrorIs(t, err, shared.ErrorNoAck)
}

func TestChunker_RemoteTimeoutSurfaces(t *testing.T) {
	cameraEnd, controllerEnd := link.Loopback()

	go func() {
		ctx := context.Background()
		_, _ = link.ReadLine(ctx, controllerEnd, time.Second)
		_ = link.WriteLine(controllerEnd, wire.TokenReady)

		buf := make([]byte, 64)
		got := 0
		for got < 10 {
			n, _ := controllerEnd.Read(buf)
			got += n
			time.Sleep(time.Millisecond)
		}
		_ = link.WriteLine(controllerEnd, wire.TokenAck)
		_ = link.WriteLine(controllerEnd, wire.TokenNackTimeout)
	}()

	chunker := NewChunker(cameraEnd, testLogger(), time.Second)
	err := chunker.Send(context.Background(), make([]byte, 10), "x.jpg")
	require.ErrorIs(t, err, shared.ErrorRemoteTimeout)
}
