package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns a client with a fixed request timeout whose transport
// emits otel spans and metrics for each request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Endpoint joins base and path segments. An empty base is a ConfigurationError.
func Endpoint(base string, elem ...string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", &ConfigurationError{Reason: "api url not configured"}
	}
	u, err := url.JoinPath(base, elem...)
	if err != nil {
		return "", &ConfigurationError{Reason: fmt.Sprintf("invalid api url %q: %v", base, err)}
	}
	return u, nil
}

// DoJSON sends in (if not nil) as JSON body and decodes a success response into
// out (if not nil). Failures are reported as TransportError or ServerError.
//
//nolint:cyclop // linear request flow
func DoJSON(
	ctx context.Context,
	cli *http.Client,
	op, method, target string,
	in, out any,
) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := cli.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // ignore error

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body
func errorMessage(data []byte) string {
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return ""
	}
	if msg.Error != "" {
		return msg.Error
	}
	return msg.Message
}
