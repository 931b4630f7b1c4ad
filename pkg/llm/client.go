// Package llm dispatches generation requests to an Ollama server over
// HTTP, normalizing streamed fragment responses into a single text buffer
// and retrying transient faults with exponential backoff.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator is the text-generation boundary the categorization pipeline
// depends on. Tests substitute a stub; production uses *Client.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ErrTimeout marks a request that exceeded its per-request deadline.
var ErrTimeout = errors.New("generation request timed out")

// ServiceError is a transport fault, a non-success status, or an error the
// service reported in-band.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "generation service error: " + e.Message
}

// Config holds client settings. Zero fields take defaults.
type Config struct {
	Host        string
	Model       string
	Timeout     time.Duration // per-request deadline, default 60s
	Attempts    int           // total attempts per Generate call, default 3
	MinBackoff  time.Duration // first retry wait, default 4s
	MaxBackoff  time.Duration // backoff cap, default 10s
	Temperature float64
	NumPredict  int
	Stream      bool // accumulate NDJSON fragments instead of one payload
}

// Client talks to Ollama's /api/generate endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a client, filling unset config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 4 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Format      string  `json:"format,omitempty"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
	Done     bool   `json:"done"`
}

// Generate sends one request per attempt, retrying timeouts and service
// faults up to the configured budget with doubling backoff. The returned
// text is the raw model output; structural validation happens upstream.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	backoff := c.cfg.MinBackoff

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		text, err := c.generateOnce(ctx, system, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if attempt == c.cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
	return "", lastErr
}

func (c *Client) generateOnce(ctx context.Context, system, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		System:      system,
		Format:      "json",
		Stream:      c.cfg.Stream,
		Temperature: c.cfg.Temperature,
		NumPredict:  c.cfg.NumPredict,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
		}
		return "", &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ServiceError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
	}

	if c.cfg.Stream {
		return collectStream(resp.Body, c.cfg.Timeout)
	}
	return collectSingle(resp.Body)
}

// collectStream accumulates Ollama's NDJSON fragment stream into one
// buffer, surfacing in-band errors and stopping at the done marker.
func collectStream(r io.Reader, timeout time.Duration) (string, error) {
	var full bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frag generateResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			return "", &ServiceError{Message: fmt.Sprintf("invalid response fragment: %v", err)}
		}
		if frag.Error != "" {
			return "", &ServiceError{Message: frag.Error}
		}
		full.WriteString(frag.Response)
		if frag.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return "", &ServiceError{Message: err.Error()}
	}
	return full.String(), nil
}

func collectSingle(r io.Reader) (string, error) {
	var payload generateResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "", &ServiceError{Message: fmt.Sprintf("invalid response payload: %v", err)}
	}
	if payload.Error != "" {
		return "", &ServiceError{Message: payload.Error}
	}
	return payload.Response, nil
}
