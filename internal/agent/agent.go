// Package agent is the HTTP client for the browser-automation sidecar
// that drives the Ad Library page. The sidecar executes a free-text
// task and returns whatever its model produced; nothing about the
// response format is guaranteed.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RunResult holds the sidecar's output for one task: the final answer
// plus the extracted content of each intermediate action, in order.
type RunResult struct {
	FinalResult   string
	ActionResults []string
}

// Client talks to a browser-agent sidecar.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an agent client. timeout covers the full task run,
// which involves real page navigation.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured returns whether a sidecar URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Run executes a browser task and returns the raw result text.
func (c *Client) Run(ctx context.Context, task string, maxSteps int) (*RunResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("browser agent not configured")
	}

	body := map[string]any{
		"task":      task,
		"max_steps": maxSteps,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/run", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser agent error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("browser agent returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		FinalResult   string `json:"final_result"`
		ActionResults []struct {
			ExtractedContent string `json:"extracted_content"`
		} `json:"action_results"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("browser agent: %s", result.Error)
	}

	run := &RunResult{FinalResult: result.FinalResult}
	for _, a := range result.ActionResults {
		if a.ExtractedContent != "" {
			run.ActionResults = append(run.ActionResults, a.ExtractedContent)
		}
	}
	return run, nil
}
