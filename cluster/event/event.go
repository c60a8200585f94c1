// Package event decodes job events from the master event bus and from
// the salt-api event stream.
package event

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-msgpack/codec"
)

const (
	tagDelimiter = "\n\n"
	jobTagPrefix = "salt/job/"
)

// ErrMalformed is returned when an event cannot be decoded.
var ErrMalformed = errors.New("event: malformed event")

// Event is a job event.
type Event struct {
	Tag     string
	JID     string
	Fun     string
	Minion  string
	Success *bool
	Retcode *int
	Stamp   string
}

// IsReturn determines if the event is a minion returning for a job.
func (e Event) IsReturn() bool {
	_, kind, _, ok := splitTag(e.Tag)
	return ok && kind == "ret"
}

// data is the payload of a job event.
type data struct {
	JID     string `json:"jid" codec:"jid"`
	Fun     string `json:"fun" codec:"fun"`
	ID      string `json:"id" codec:"id"`
	Success *bool  `json:"success" codec:"success"`
	Retcode *int   `json:"retcode" codec:"retcode"`
	Stamp   string `json:"_stamp" codec:"_stamp"`
}

func newEvent(tag string, d data) Event {
	e := Event{
		Tag:     tag,
		JID:     d.JID,
		Fun:     d.Fun,
		Minion:  d.ID,
		Success: d.Success,
		Retcode: d.Retcode,
		Stamp:   d.Stamp,
	}

	if jid, _, minion, ok := splitTag(tag); ok {
		if e.JID == "" {
			e.JID = jid
		}
		if e.Minion == "" {
			e.Minion = minion
		}
	}
	return e
}

// splitTag splits a job tag of the form salt/job/<jid>/<kind>[/<minion>].
func splitTag(tag string) (jid, kind, minion string, ok bool) {
	if !strings.HasPrefix(tag, jobTagPrefix) {
		return "", "", "", false
	}

	parts := strings.SplitN(strings.TrimPrefix(tag, jobTagPrefix), "/", 3)
	if len(parts) < 2 {
		return "", "", "", false
	}
	if len(parts) == 3 {
		minion = parts[2]
	}
	return parts[0], parts[1], minion, true
}

// msgpackHandle is a shared handle for encoding/decoding of bus events.
var msgpackHandle = &codec.MsgpackHandle{}

// Decode decodes a bus event body. The body is the event tag followed
// by a blank line and the msgpack encoded payload.
func Decode(body []byte) (Event, error) {
	idx := bytes.Index(body, []byte(tagDelimiter))
	if idx < 0 {
		return Event{}, fmt.Errorf("%w: missing tag delimiter", ErrMalformed)
	}
	tag := string(body[:idx])

	var d data
	if err := codec.NewDecoder(bytes.NewReader(body[idx+len(tagDelimiter):]), msgpackHandle).Decode(&d); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return newEvent(tag, d), nil
}

// Encode encodes an event body from a tag and payload.
func Encode(tag string, payload interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(tag)
	buf.WriteString(tagDelimiter)
	err := codec.NewEncoder(&buf, msgpackHandle).Encode(payload)
	return buf.Bytes(), err
}
