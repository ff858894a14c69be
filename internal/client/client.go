package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwpack/fwpack/internal/config"
)

// requestTimeout bounds each individual server call, chunk uploads
// included.
const requestTimeout = 60 * time.Second

// errorBodyLimit caps how much of an error response is read back for
// diagnostics.
const errorBodyLimit = 4 * 1024

// ErrUnexpectedResponse is returned when the server answers with a
// status the caller did not expect.
var ErrUnexpectedResponse = errors.New("unexpected server response")

// Client issues signed requests against one update server.
type Client struct {
	serverURL    string
	accessID     string
	accessSecret string
	httpClient   *http.Client
}

// New builds a client from the loaded configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		serverURL:    strings.TrimSuffix(cfg.ServerURL, "/"),
		accessID:     cfg.AccessID,
		accessSecret: cfg.AccessSecret,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

// URL joins a server-relative path onto the configured server address.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.serverURL + path
}

// Do signs the request and sends it.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	req.Sign(c.accessID, c.accessSecret)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), bytes.NewReader(req.Payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for name, value := range req.Headers {
		if name == "Host" {
			httpReq.Host = value

			continue
		}

		httpReq.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	return resp, nil
}

// PostJSON sends a JSON document to a server-relative path and decodes
// the JSON answer into out when out is non-nil. Any status other than
// wantStatus is an error carrying the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := NewRequest(http.MethodPost, c.URL(path), payload)
	if err != nil {
		return err
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != wantStatus {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode server response: %w", err)
	}

	return nil
}

// Post sends a raw payload to an absolute URL, as used for object
// chunk uploads where the server hands out the target addresses.
func (c *Client) Post(ctx context.Context, rawURL string, payload []byte, wantStatus int) error {
	req, err := NewRequest(http.MethodPost, rawURL, payload)
	if err != nil {
		return err
	}

	req.SetHeader("Content-Type", "application/octet-stream")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != wantStatus {
		return responseError(resp)
	}

	return nil
}

// responseError summarizes a rejected response.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	message := strings.TrimSpace(string(body))
	if message == "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Status)
	}

	return fmt.Errorf("%w: %s: %s", ErrUnexpectedResponse, resp.Status, message)
}
