package event

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-msgpack/codec"
)

// Reader reads events.
type Reader interface {
	Next() (Event, error)
}

// frame is a message on the master event bus.
type frame struct {
	Body []byte `codec:"body"`
}

// BusReader reads msgpack framed events from the master event bus.
type BusReader struct {
	dec *codec.Decoder
}

// NewBusReader returns a bus reader.
func NewBusReader(r io.Reader) *BusReader {
	return &BusReader{
		dec: codec.NewDecoder(bufio.NewReader(r), msgpackHandle),
	}
}

// Next returns the next event. It returns io.EOF when the bus is closed.
func (r *BusReader) Next() (Event, error) {
	var f frame
	if err := r.dec.Decode(&f); err != nil {
		return Event{}, err
	}
	return Decode(f.Body)
}

// EncodeFrame encodes an event body as a bus frame.
func EncodeFrame(w io.Writer, body []byte) error {
	return codec.NewEncoder(w, msgpackHandle).Encode(map[string]interface{}{
		"head": map[string]interface{}{},
		"body": body,
	})
}

// SSEReader reads events from a salt-api server-sent event stream.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader returns a server-sent event reader.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	return &SSEReader{scanner: scanner}
}

type sseMessage struct {
	Tag  string `json:"tag"`
	Data data   `json:"data"`
}

// Next returns the next event. It returns io.EOF when the stream ends.
func (r *SSEReader) Next() (Event, error) {
	var payload strings.Builder
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if payload.Len() == 0 {
				continue
			}

			var msg sseMessage
			if err := json.Unmarshal([]byte(payload.String()), &msg); err != nil {
				return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return newEvent(msg.Tag, msg.Data), nil
		}

		if strings.HasPrefix(line, "data:") {
			if payload.Len() > 0 {
				payload.WriteByte('\n')
			}
			payload.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Stream reads job return events into a channel until the reader
// fails or the context is done. Malformed events are skipped. The
// error channel receives the reason the stream stopped, unless the
// context was cancelled.
func Stream(ctx context.Context, r Reader) (<-chan Event, <-chan error) {
	events := make(chan Event, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(events)

		for {
			e, err := r.Next()
			if errors.Is(err, ErrMalformed) {
				continue
			}
			if err != nil {
				if ctx.Err() == nil {
					errs <- err
				}
				return
			}
			if !e.IsReturn() {
				continue
			}

			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}
