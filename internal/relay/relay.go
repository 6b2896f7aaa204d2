// Package relay turns a stored file into an HTTP POST issued through the
// modem's command channel and interprets the asynchronous carrier reply.
//
// The POST is deliberately decoupled in time from its result: Start returns
// once the action command is accepted, and the scheduler feeds unsolicited
// modem lines back through HandleLine. Correlation is "most recent request"
// only, represented as a single in-flight slot; late results with no
// outstanding request are dropped.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/modem"
	"github.com/mlevkov/camlink/internal/wire"
)

// ContentType declared for every upload.
const ContentType = "image/jpeg"

// Service is the modem HTTP surface the relay drives. *modem.HTTP satisfies
// it; tests use a scripted fake.
type Service interface {
	Terminate(ctx context.Context)
	Init(ctx context.Context) error
	SetParam(ctx context.Context, key, value string) error
	BeginData(ctx context.Context, size int64, window time.Duration) error
	WriteBody(p []byte) (int, error)
	EndData(ctx context.Context) error
	Post(ctx context.Context) error
	ReadBody(ctx context.Context, want int, timeout time.Duration) ([]byte, error)
}

type Config struct {
	// BaseURL is the fixed ingestion address; identifier and filename are
	// appended as query parameters.
	BaseURL string
	// AuthToken, when set, is sent as a bearer Authorization header.
	AuthToken string
	// Pacing is the small delay between body writes, respecting the
	// channel's buffering limits.
	Pacing time.Duration
	// DataWindow is how long the modem keeps its data input open.
	DataWindow time.Duration
	// BodyWait bounds the read-back accumulation after a successful action.
	BodyWait time.Duration
}

func (c *Config) withDefaults() {
	if c.Pacing <= 0 {
		c.Pacing = 20 * time.Millisecond
	}
	if c.DataWindow <= 0 {
		c.DataWindow = 10 * time.Second
	}
	if c.BodyWait <= 0 {
		c.BodyWait = 5 * time.Second
	}
}

// Relay is the upload state machine. One upload is in flight at a time,
// serialized by the scheduler loop; delivery is at-most-once per Done event.
type Relay struct {
	svc Service
	log logging.Logger
	cfg Config

	pending *Session
	last    *Session
}

func New(svc Service, log logging.Logger, cfg Config) *Relay {
	cfg.withDefaults()
	return &Relay{
		svc: svc,
		log: log.With("module", "relay"),
		cfg: cfg,
	}
}

// InFlight reports whether an action result is still outstanding.
func (r *Relay) InFlight() bool { return r.pending != nil }

// Last returns the most recently settled session, if any.
func (r *Relay) Last() *Session { return r.last }

// Start derives the upload session from the stored filename and pushes the
// file body into the modem, finishing with the POST action command. It
// returns once the action is accepted; the result arrives later via
// HandleLine. A derivation failure aborts before any command is issued.
func (r *Relay) Start(ctx context.Context, path string) error {
	sess, err := DeriveSession(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	target := fmt.Sprintf("%s?id_sensor=%s&filename=%s",
		r.cfg.BaseURL,
		url.QueryEscape(sess.SensorID),
		url.QueryEscape(sess.RemoteFilename))

	// Tearing down a session that may not exist is part of the contract.
	r.svc.Terminate(ctx)

	if err := r.svc.Init(ctx); err != nil {
		return err
	}
	if err := r.setParams(ctx, target); err != nil {
		r.svc.Terminate(ctx)
		return err
	}
	if err := r.stream(ctx, f, fi.Size()); err != nil {
		r.svc.Terminate(ctx)
		return err
	}
	if err := r.svc.Post(ctx); err != nil {
		r.svc.Terminate(ctx)
		return err
	}

	r.pending = sess
	r.log.Info(ctx, "upload posted",
		"path", path, "sensor", sess.SensorID, "filename", sess.RemoteFilename, "bytes", fi.Size())
	return nil
}

func (r *Relay) setParams(ctx context.Context, target string) error {
	if err := r.svc.SetParam(ctx, "CID", "1"); err != nil {
		return err
	}
	if err := r.svc.SetParam(ctx, "URL", target); err != nil {
		return err
	}
	if err := r.svc.SetParam(ctx, "CONTENT", ContentType); err != nil {
		return err
	}
	if r.cfg.AuthToken != "" {
		header := "Authorization: Bearer " + r.cfg.AuthToken
		if err := r.svc.SetParam(ctx, "USERDATA", header); err != nil {
			return err
		}
	}
	return nil
}

// stream pushes the file into the modem's data window in fixed-size reads,
// pacing each write.
func (r *Relay) stream(ctx context.Context, f io.Reader, size int64) error {
	if err := r.svc.BeginData(ctx, size, r.cfg.DataWindow); err != nil {
		return err
	}

	buf := make([]byte, wire.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := r.svc.WriteBody(buf[:n]); werr != nil {
				return fmt.Errorf("write body: %w", werr)
			}
			time.Sleep(r.cfg.Pacing)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
	}

	return r.svc.EndData(ctx)
}

// HandleLine inspects one unsolicited modem line. It returns true when the
// line was an HTTP action result (whether or not a request was outstanding);
// other lines are left for the caller.
func (r *Relay) HandleLine(ctx context.Context, line string) bool {
	res, ok := modem.ParseActionResult(line)
	if !ok {
		return false
	}

	if r.pending == nil {
		// Late reply with no outstanding request: never matched to a stale
		// session.
		r.log.Warn(ctx, "dropping action result with no outstanding request", "line", line)
		return true
	}

	sess := r.pending
	r.pending = nil
	sess.HTTPStatus = res.Status
	sess.ResponseLength = res.Length

	if sess.Succeeded() && res.Length > 0 {
		body, err := r.svc.ReadBody(ctx, res.Length, r.cfg.BodyWait)
		if err != nil {
			r.log.Warn(ctx, "response read-back failed", "error", err)
		}
		sess.ResponseBody = body
	}

	r.svc.Terminate(ctx)
	sess.Status = StatusCompleted
	r.last = sess

	if sess.Succeeded() {
		r.log.Info(ctx, "upload acknowledged",
			"sensor", sess.SensorID, "status", sess.HTTPStatus, "response_len", sess.ResponseLength)
	} else {
		// No automatic retry: the file stays stored for a manual re-upload.
		r.log.Error(ctx, "upload rejected",
			"sensor", sess.SensorID, "status", sess.HTTPStatus)
	}
	return true
}
