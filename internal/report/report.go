// Package report defines the immutable Report value submitted by remote
// clients and its JSON envelope wire format.
//
// A connection carries exactly one envelope: {"channel": <int>, "data": <json>}.
// Decode bounds the read, rejects trailing content, and stamps the report with
// an ID, origin and receipt time. Equality for duplicate suppression is
// content-only: two reports with the same channel and compacted payload share
// a Key regardless of who sent them or when.
package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxPayloadBytes is the default upper bound for a single envelope.
const MaxPayloadBytes int64 = 1 << 20

var (
	// ErrPayloadTooLarge is returned when an envelope exceeds the read limit.
	ErrPayloadTooLarge = errors.New("report payload exceeds size limit")
	// ErrEmptyPayload is returned when the envelope carries no data.
	ErrEmptyPayload = errors.New("report payload is empty")
)

// Report is one submitted record. The zero value is not a valid report.
type Report struct {
	id         string
	channel    int
	data       []byte
	origin     string
	receivedAt time.Time
	key        string
}

type envelope struct {
	Channel int             `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// New builds a report from an already-parsed payload. data must be valid JSON.
func New(channel int, data []byte, origin string, receivedAt time.Time) (Report, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return Report{}, ErrEmptyPayload
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return Report{}, fmt.Errorf("compact payload: %w", err)
	}
	payload := compact.Bytes()
	return Report{
		id:         uuid.NewString(),
		channel:    channel,
		data:       payload,
		origin:     origin,
		receivedAt: receivedAt.UTC(),
		key:        contentKey(channel, payload),
	}, nil
}

// Decode reads one envelope from r. It stops after the first JSON value, so
// clients need not half-close the connection. At most limit bytes are
// consumed; a non-positive limit selects MaxPayloadBytes.
func Decode(r io.Reader, limit int64, origin string, now time.Time) (Report, error) {
	if limit <= 0 {
		limit = MaxPayloadBytes
	}
	counted := &countingReader{r: io.LimitReader(r, limit+1)}
	dec := json.NewDecoder(counted)
	var env envelope
	if err := dec.Decode(&env); err != nil {
		if counted.n > limit {
			return Report{}, ErrPayloadTooLarge
		}
		return Report{}, fmt.Errorf("decode envelope: %w", err)
	}
	if dec.InputOffset() > limit {
		return Report{}, ErrPayloadTooLarge
	}
	rest, err := io.ReadAll(dec.Buffered())
	if err != nil {
		return Report{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return Report{}, errors.New("decode envelope: trailing data after report")
	}
	return New(env.Channel, env.Data, origin, now)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Encode writes the envelope for channel and data to w.
func Encode(w io.Writer, channel int, data []byte) error {
	if !json.Valid(data) {
		return errors.New("encode envelope: data is not valid JSON")
	}
	return json.NewEncoder(w).Encode(envelope{Channel: channel, Data: data})
}

func contentKey(channel int, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(channel)))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ID returns the identifier assigned on receipt.
func (r Report) ID() string { return r.id }

// Channel returns the submitter-chosen channel number.
func (r Report) Channel() int { return r.channel }

// Data returns a copy of the compacted JSON payload.
func (r Report) Data() []byte { return append([]byte(nil), r.data...) }

// Origin returns the remote address the report arrived from.
func (r Report) Origin() string { return r.origin }

// ReceivedAt returns the UTC receipt time.
func (r Report) ReceivedAt() time.Time { return r.receivedAt }

// Key returns the duplicate-suppression key.
func (r Report) Key() string { return r.key }

// Equal reports whether r and other collapse under duplicate suppression.
func (r Report) Equal(other Report) bool { return r.key == other.key }

// String renders the report on a single line.
func (r Report) String() string {
	origin := r.origin
	if origin == "" {
		origin = "-"
	}
	return fmt.Sprintf("%s %s channel=%d %s", r.receivedAt.Format(time.RFC3339), origin, r.channel, r.data)
}
