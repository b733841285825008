// Package upstream is the HTTP client for the remote task-management
// service. It fetches the two raw feeds the reconciliation engine consumes:
// the task list (with embedded checklist and work-item fragments) and the
// upcoming schedule-entries window. Retry and auth-refresh belong to the
// caller; this client forwards the caller's bearer token as-is.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dayboard/api/internal/today"
)

// maxPages bounds the task pagination loop against a misbehaving upstream
// that keeps returning full pages.
const maxPages = 50

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
}

func New(baseURL string, timeout time.Duration, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

type itemsEnvelope struct {
	Items []today.Record `json:"items"`
}

// FetchTasks pages through the caller's task list and returns the
// concatenated raw records.
func (c *Client) FetchTasks(ctx context.Context, token, userID string) ([]today.Record, error) {
	var all []today.Record
	for page := 1; page <= maxPages; page++ {
		requestURL := fmt.Sprintf(
			"%s/tasks/by-user/%s?page=%d&pageSize=%d&includeChecklist=true&includeWorkItems=true",
			c.baseURL, url.PathEscape(userID), page, c.pageSize,
		)
		body, err := c.get(ctx, token, requestURL)
		if err != nil {
			return nil, err
		}
		var envelope itemsEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode task page %d: %w", page, err)
		}
		all = append(all, envelope.Items...)
		if len(envelope.Items) < c.pageSize {
			break
		}
	}
	return all, nil
}

// FetchScheduleEntries fetches the schedule entries between from and to.
// The endpoint has returned both a bare JSON array and an {items: [...]}
// envelope across versions; both are accepted.
func (c *Client) FetchScheduleEntries(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	query.Set("order", "asc")

	body, err := c.get(ctx, token, c.baseURL+"/schedule-entries/upcoming?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var bare []today.Record
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var envelope itemsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode schedule entries: %w", err)
	}
	return envelope.Items, nil
}

func (c *Client) get(ctx context.Context, token, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	return body, nil
}

func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}
