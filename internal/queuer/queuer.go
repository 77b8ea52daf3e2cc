// internal/queuer/queuer.go

// Package queuer talks to the external audio-processing service. This API
// only forwards jobs and reads back a success/failure signal; synthesis,
// concatenation and scheduling all happen on the queuer's side.
package queuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mantra-fm/backend/internal/logger"
)

type Job struct {
	MantraID     uint   `json:"mantraId"`
	UserID       uint   `json:"userId"`
	Text         string `json:"text"`
	VoiceID      string `json:"voiceId"`
	SoundFileIDs []uint `json:"soundFileIds"`
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, log *logger.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing queuer base URL")
	}
	return &Client{
		log:        log.With("client", "QueuerClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SubmitJob forwards one processing job. Any non-2xx response is a failure.
func (c *Client) SubmitJob(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Error("queuer rejected job",
			"mantraID", job.MantraID,
			"status", resp.StatusCode,
			"body", string(raw))
		return fmt.Errorf("queuer returned status %d", resp.StatusCode)
	}

	c.log.Info("job submitted to queuer", "mantraID", job.MantraID, "userID", job.UserID)
	return nil
}
