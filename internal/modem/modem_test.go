package modem

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/shared"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestChannel() (*Channel, *link.MemPort) {
	ours, theirs := link.Loopback()
	return NewChannel(ours, testLogger()), theirs
}

func TestParseActionResult(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   ActionResult
		wantOK bool
	}{
		{name: "post ok", line: "+HTTPACTION: 1,200,42", want: ActionResult{Method: 1, Status: 200, Length: 42}, wantOK: true},
		{name: "no space", line: "+HTTPACTION:1,404,0", want: ActionResult{Method: 1, Status: 404, Length: 0}, wantOK: true},
		{name: "get", line: "+HTTPACTION: 0,301,17", want: ActionResult{Method: 0, Status: 301, Length: 17}, wantOK: true},
		{name: "other urc", line: "+CREG: 0,1", wantOK: false},
		{name: "too few fields", line: "+HTTPACTION: 1,200", wantOK: false},
		{name: "garbage numeric", line: "+HTTPACTION: a,b,c", wantOK: false},
		{name: "plain line", line: "OK", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseActionResult(tc.line)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestChannel_CommandCollectsUntilOK(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("AT+CCLK?\r\n+CCLK: \"26/08/26,10:00:00+00\"\r\n\r\nOK\r\n"))
	require.NoError(t, err)

	lines, err := ch.Command(context.Background(), "AT+CCLK?", time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{`+CCLK: "26/08/26,10:00:00+00"`}, lines, "echo and blank lines skipped")
}

func TestChannel_CommandError(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("ERROR\r\n"))
	require.NoError(t, err)

	_, err = ch.Command(context.Background(), "AT+HTTPINIT", time.Second)
	require.ErrorIs(t, err, shared.ErrorCommand)
}

func TestChannel_CommandTimeout(t *testing.T) {
	ch, _ := newTestChannel()
	_, err := ch.Command(context.Background(), "AT+HTTPINIT", 30*time.Millisecond)
	require.ErrorIs(t, err, shared.ErrorNoPrompt)
}

func TestChannel_PollLineNonBlocking(t *testing.T) {
	ch, modemSide := newTestChannel()

	_, ok := ch.PollLine()
	require.False(t, ok)

	_, err := modemSide.Write([]byte("+HTTPACTION: 1,200,42\r\npartial"))
	require.NoError(t, err)

	line, ok := ch.PollLine()
	require.True(t, ok)
	require.Equal(t, "+HTTPACTION: 1,200,42", line)

	_, ok = ch.PollLine()
	require.False(t, ok, "partial line stays buffered")
}

func TestHTTP_InitFailureIsChannelInit(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("ERROR\r\n"))
	require.NoError(t, err)

	h := NewHTTP(ch, time.Second)
	err = h.Init(context.Background())
	require.ErrorIs(t, err, shared.ErrorChannelInit)
}

func TestHTTP_BeginDataWaitsForPrompt(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("DOWNLOAD\r\n"))
	require.NoError(t, err)

	h := NewHTTP(ch, time.Second)
	require.NoError(t, h.BeginData(context.Background(), 1024, 5*time.Second))

	// the modem side saw the declared length and window
	line, err := link.ReadLine(context.Background(), modemSide, time.Second)
	require.NoError(t, err)
	require.Equal(t, "AT+HTTPDATA=1024,5000", line)
}

func TestHTTP_ReadBodyFull(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("+HTTPREAD: 5\r\nhelloOK\r\n"))
	require.NoError(t, err)

	h := NewHTTP(ch, time.Second)
	body, err := h.ReadBody(context.Background(), 5, time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
}

func TestHTTP_ReadBodyPartialOnTimeout(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("+HTTPREAD: 42\r\nonly-this"))
	require.NoError(t, err)

	h := NewHTTP(ch, time.Second)
	body, err := h.ReadBody(context.Background(), 42, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "only-this", string(body), "partial body accepted as-is")
}

func TestHTTP_Clock(t *testing.T) {
	ch, modemSide := newTestChannel()
	_, err := modemSide.Write([]byte("+CCLK: \"26/08/26,10:30:00+00\"\r\nOK\r\n"))
	require.NoError(t, err)

	h := NewHTTP(ch, time.Second)
	got, err := h.Clock(context.Background())
	require.NoError(t, err)
	require.Equal(t, "26/08/26,10:30:00+00", got)
}
