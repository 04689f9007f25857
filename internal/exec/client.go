// Package exec proxies code to a Piston-compatible execution service.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type request struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []file `json:"files"`
}

type file struct {
	Content string `json:"content"`
}

// Result is a successful execution. Raw carries the service's full response
// body so it can be fanned out to clients unmodified; Output is the
// run.output field pulled out for room state.
type Result struct {
	Raw    json.RawMessage
	Output string
}

type Client struct {
	url   string
	httpc *http.Client
	log   *slog.Logger
}

// NewClient wraps the execute endpoint. timeout bounds the whole request;
// it is also enforced per call via the context.
func NewClient(url string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		url:   url,
		httpc: &http.Client{Timeout: timeout},
		log:   log,
	}
}

// Execute posts the code as a single source file and returns the full
// response. Network errors, non-2xx statuses, and bodies missing the
// expected shape all surface as errors; nothing is swallowed here.
func (c *Client) Execute(ctx context.Context, language, version, code string) (Result, error) {
	body, err := json.Marshal(request{
		Language: language,
		Version:  version,
		Files:    []file{{Content: code}},
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("execute response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("execute service status %d", resp.StatusCode)
	}

	var parsed struct {
		Run struct {
			Output string `json:"output"`
		} `json:"run"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("execute response decode: %w", err)
	}

	c.log.Debug("exec.done", "language", language, "bytes", len(raw))
	return Result{Raw: json.RawMessage(raw), Output: parsed.Run.Output}, nil
}
