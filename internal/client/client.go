// Package client is a typed client for the shipscan HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shipscan/scanner-api/internal/model"
)

var ErrNotFound = errors.New("scan not found")

// APIError is any non-success answer other than 404.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &retryTransport{
				base:    http.DefaultTransport,
				retries: cfg.Retries,
				backoff: 200 * time.Millisecond,
			},
		},
	}
}

// StartScan submits target and returns the new job id.
func (c *Client) StartScan(ctx context.Context, target string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": target})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("server returned no scan id")
	}
	return out.ID, nil
}

func (c *Client) GetScan(ctx context.Context, id string) (model.ScanJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scan/"+url.PathEscape(id), nil)
	if err != nil {
		return model.ScanJob{}, err
	}
	var job model.ScanJob
	if err := c.do(req, http.StatusOK, &job); err != nil {
		return model.ScanJob{}, err
	}
	return job, nil
}

// Poll fetches the job every interval until it reaches a terminal status.
// onUpdate, if set, sees every fetched state.
func (c *Client) Poll(ctx context.Context, id string, interval time.Duration, onUpdate func(model.ScanJob)) (model.ScanJob, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetScan(ctx, id)
		if err != nil {
			return model.ScanJob{}, err
		}
		if onUpdate != nil {
			onUpdate(job)
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var body struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
