// Package saltapi implements a client for the salt-api REST interface.
package saltapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/pkg/errors"
)

// TransportError is returned when a request fails or returns a
// payload that is not structured as expected.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

// Error returns the error message.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("saltapi: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("saltapi: %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause of the error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// OptsFunc configures a client.
type OptsFunc func(c *Client)

// WithHTTPClient sets the http client used by the client.
func WithHTTPClient(hc *http.Client) OptsFunc {
	return func(c *Client) {
		c.http = hc
	}
}

// WithToken sets the authentication token of the client.
func WithToken(token string) OptsFunc {
	return func(c *Client) {
		c.token = token
	}
}

// Client is a salt-api client.
type Client struct {
	url   string
	token string
	http  *http.Client
}

// New returns a salt-api client for the given url.
func New(url string, opts ...OptsFunc) *Client {
	c := &Client{
		url:  strings.TrimSuffix(url, "/"),
		http: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token returns the authentication token of the client.
func (c *Client) Token() string {
	return c.token
}

type loginResponse struct {
	Return []struct {
		Token string `json:"token"`
	} `json:"return"`
}

// Login authenticates with the salt-api and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password, eauth string) error {
	req := map[string]string{
		"username": username,
		"password": password,
		"eauth":    eauth,
	}

	var resp loginResponse
	if err := c.post(ctx, "login", "/login", req, &resp); err != nil {
		return err
	}
	if len(resp.Return) == 0 || resp.Return[0].Token == "" {
		return &TransportError{Op: "login", Err: errors.New("no token returned")}
	}

	c.token = resp.Return[0].Token
	return nil
}

type listJobResponse struct {
	Return []job.Info `json:"return"`
}

// JobDetail fetches the detail of a job.
func (c *Client) JobDetail(ctx context.Context, jid string) (job.Info, error) {
	req := []map[string]string{{
		"client": "runner",
		"fun":    "jobs.list_job",
		"jid":    jid,
	}}

	var resp listJobResponse
	if err := c.post(ctx, "jobs.list_job", "/", req, &resp); err != nil {
		return job.Info{}, err
	}
	if len(resp.Return) == 0 {
		return job.Info{}, &TransportError{Op: "jobs.list_job", Err: errors.New("empty response")}
	}

	info := resp.Return[0]
	if info.Error != "" {
		return job.Info{}, &TransportError{Op: "jobs.list_job", Err: errors.New(info.Error)}
	}
	return info, nil
}

type activeResponse struct {
	Return []job.ActiveJobs `json:"return"`
}

// ActiveJobs fetches the jobs that are still running.
func (c *Client) ActiveJobs(ctx context.Context) (job.ActiveJobs, error) {
	req := []map[string]string{{
		"client": "runner",
		"fun":    "jobs.active",
	}}

	var resp activeResponse
	if err := c.post(ctx, "jobs.active", "/", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Return) == 0 {
		return nil, &TransportError{Op: "jobs.active", Err: errors.New("empty response")}
	}

	active := resp.Return[0]
	if active == nil {
		active = job.ActiveJobs{}
	}
	return active, nil
}

// EventStream is an open salt-api event stream.
type EventStream struct {
	*event.SSEReader

	body io.Closer
}

// Close closes the event stream.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// Events opens the salt-api event stream. The stream must be closed
// when done.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/events", nil)
	if err != nil {
		return nil, errors.Wrap(err, "saltapi: creating events request")
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "events", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &TransportError{Op: "events", Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	return &EventStream{SSEReader: event.NewSSEReader(resp.Body), body: resp.Body}, nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "saltapi: encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "saltapi: creating request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	if err = json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "unexpected payload")}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token == "" {
		return
	}
	req.Header.Set("X-Auth-Token", c.token)
}
