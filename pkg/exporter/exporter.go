// Package exporter delivers sealed reports to the fleet server.
package exporter

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

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
)

const (
	// ContentType is what agents have always sent the sealed body as.
	ContentType = "application/text"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// Sealer encrypts a marshalled report into its text form.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
}

// Exporter posts reports to one server.
type Exporter struct {
	baseURL    string
	sealer     Sealer
	httpClient *http.Client
	timeout    time.Duration
}

// New returns an Exporter for baseURL (scheme, host and optional prefix).
func New(baseURL string, sealer Sealer, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Exporter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sealer:     sealer,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

type serverReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Send marshals report, seals it and POSTs it to path.
func (e *Exporter) Send(ctx context.Context, path string, report interface{}) error {
	plaintext, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("error marshaling report to JSON: %w", err)
	}

	body, err := e.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("error sealing report: %w", err)
	}

	url := e.baseURL + path
	appLogger.Debug("Sending report (%d bytes sealed) to %s", len(body), url)

	reqCtx, reqCancel := context.WithTimeout(ctx, e.timeout)
	defer reqCancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating HTTP request to %s: %w", url, err)
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request to %s cancelled: %w", url, ctx.Err())
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("request to %s timed out: %w", url, err)
		}
		return fmt.Errorf("error sending report to %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("error reading response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var reply serverReply
		if json.Unmarshal(raw, &reply) == nil && reply.Error != "" {
			return fmt.Errorf("server at %s responded with %s: %s", url, resp.Status, reply.Error)
		}
		return fmt.Errorf("server at %s responded with %s: %s", url, resp.Status, string(bytes.TrimSpace(raw)))
	}

	appLogger.Debug("Report accepted by %s (%s)", url, resp.Status)
	return nil
}
