// Package qa holds the boundary to the external question-answering model:
// a thin HTTP client plus the confidence-threshold adapter the rest of the
// system talks to.
package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls an extractive question-answering service. The wire contract
// matches the hosted QA pipeline interface: one question plus one grounding
// context in, one answer span with a confidence score out.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type request struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type response struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Answer sends one question with its grounding context and returns the
// extracted answer span and its confidence score in [0,1].
func (c *Client) Answer(ctx context.Context, question, contextDoc string) (string, float64, error) {
	body, err := json.Marshal(request{Question: question, Context: contextDoc})
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("qa call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return "", 0, fmt.Errorf("qa error %d: %s", resp.StatusCode, errResp.Error)
		}
		return "", 0, fmt.Errorf("qa error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", 0, fmt.Errorf("unmarshal response: %w", err)
	}

	return apiResp.Answer, apiResp.Score, nil
}
