package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

// Client talks to a running playbackd.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Send posts a control message and returns the server's result.
func (c *Client) Send(ctx context.Context, msg streaming.Message) (ControlResponse, error) {
	body, err := streaming.Encode(msg)
	if err != nil {
		return ControlResponse{}, err
	}
	return c.SendRaw(ctx, body)
}

// SendRaw posts an already encoded envelope.
func (c *Client) SendRaw(ctx context.Context, envelope []byte) (ControlResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/control", bytes.NewReader(envelope))
	if err != nil {
		return ControlResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ControlResponse{}, fmt.Errorf("control request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ControlResponse{}, fmt.Errorf("read control response: %w", err)
	}
	var out ControlResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return ControlResponse{}, fmt.Errorf("control returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = string(bytes.TrimSpace(data))
		}
		return out, fmt.Errorf("control returned status %d: %s", resp.StatusCode, msg)
	}
	return out, nil
}

// Status fetches the simulator status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.getJSON(ctx, "/api/v1/status", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// SubscribeURL builds the websocket URL for a subscriber stream.
func (c *Client) SubscribeURL(id string, hz float64, properties []string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/subscribe")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{}
	if id != "" {
		q.Set("id", id)
	}
	q.Set("hz", strconv.FormatFloat(hz, 'f', -1, 64))
	q.Set("properties", strings.Join(properties, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
