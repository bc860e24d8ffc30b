// Package report renders owner statements to PDF through Gotenberg.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// a4 is the page setup of every statement, in inches as Gotenberg expects.
var a4 = map[string]string{
	"paperWidth":      "8.27",
	"paperHeight":     "11.7",
	"marginTop":       "0.5",
	"marginBottom":    "0.5",
	"marginLeft":      "0.4",
	"marginRight":     "0.4",
	"printBackground": "true",
}

// Client talks to the Chromium HTML route of a Gotenberg instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client. An empty baseURL leaves it unconfigured.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether a Gotenberg endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Ping checks the Gotenberg health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotenberg: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("gotenberg: health returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a statement page into an A4 PDF.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body, contentType, err := statementForm(html)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	// Gotenberg names the output after this header.
	req.Header.Set("Gotenberg-Output-Filename", "statement")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg: render failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return io.ReadAll(resp.Body)
}

func statementForm(html string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, "", err
	}
	for field, value := range a4 {
		if err := writer.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
