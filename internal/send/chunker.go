// Package send implements the originating side of the serial transfer: a
// stop-and-wait chunk protocol. Throughput is bounded by the round-trip
// latency of each ACK; there is no sliding window and no self-retry — restart
// decisions belong to the caller.
package send

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/shared"
	"github.com/mlevkov/camlink/internal/wire"
)

// DefaultAckTimeout bounds each handshake wait (READY, per-chunk ACK, DONE).
const DefaultAckTimeout = 10 * time.Second

type Chunker struct {
	port       link.Port
	log        logging.Logger
	ackTimeout time.Duration
}

func NewChunker(port link.Port, log logging.Logger, ackTimeout time.Duration) *Chunker {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Chunker{
		port:       port,
		log:        log.With("module", "send"),
		ackTimeout: ackTimeout,
	}
}

// Send writes the header line for a finished byte buffer, waits for READY,
// then streams fixed-size chunks (the last one short), waiting for one ACK
// per chunk before sending the next. After the final chunk it waits for
// DONE; a NACK_TIMEOUT or an expired wait fails this attempt.
func (c *Chunker) Send(ctx context.Context, data []byte, destName string) error {
	header := wire.Header{Filename: destName, Size: int64(len(data))}
	if _, err := c.port.Write(wire.EncodeHeader(header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	c.log.Info(ctx, "sent header", "name", destName, "size", len(data))

	if !link.WaitFor(ctx, c.port, wire.TokenReady, c.ackTimeout) {
		return shared.ErrorNoReady
	}

	for offset := 0; offset < len(data); {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := offset + wire.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := c.port.Write(data[offset:end]); err != nil {
			return fmt.Errorf("write chunk at %d: %w", offset, err)
		}
		if !link.WaitFor(ctx, c.port, wire.TokenAck, c.ackTimeout) {
			return fmt.Errorf("chunk at %d: %w", offset, shared.ErrorNoAck)
		}
		offset = end
		c.log.Debug(ctx, "chunk acknowledged", "sent", offset, "total", len(data))
	}

	return c.awaitDone(ctx)
}

// awaitDone reads status lines until the receiver settles the transfer.
func (c *Chunker) awaitDone(ctx context.Context) error {
	deadline := time.Now().Add(c.ackTimeout)
	for time.Now().Before(deadline) {
		line, err := link.ReadLine(ctx, c.port, time.Until(deadline))
		if err != nil {
			break
		}
		switch strings.TrimSpace(line) {
		case wire.TokenDone:
			return nil
		case wire.TokenNackTimeout:
			return shared.ErrorRemoteTimeout
		}
	}
	return shared.ErrorNoDone
}
