package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Raw task states reported by the generation API.
const (
	StateWaiting    = "waiting"
	StateQueuing    = "queuing"
	StateGenerating = "generating"
	StateSuccess    = "success"
	StateFail       = "fail"
)

// SubmitError is returned when the generation API rejects a job submission
// (non-2xx, business code != 200, or malformed response).
type SubmitError struct {
	Code    int
	Message string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("kie submit error (%d): %s", e.Code, e.Message)
}

// PollError is a transport or protocol failure while checking task status.
// Callers treat it as transient.
type PollError struct {
	Code    int
	Message string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("kie poll error (%d): %s", e.Code, e.Message)
}

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

const defaultModel = "kling-2.6/motion-control"

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.kie.ai"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   defaultModel,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type SubmitInput struct {
	Prompt      string
	ImageURL    string
	VideoURL    string
	CallbackURL string // optional; empty means poll-only
}

type submitReq struct {
	Model       string      `json:"model"`
	CallBackURL string      `json:"callBackUrl,omitempty"`
	Input       submitInput `json:"input"`
}

type submitInput struct {
	Prompt    string   `json:"prompt"`
	InputURLs []string `json:"input_urls"`
	VideoURLs []string `json:"video_urls"`
	Mode      string   `json:"mode"`
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Status is one observation of a task's remote state.
type Status struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

// Terminal reports whether the remote state permits no further transitions.
func (s *Status) Terminal() bool {
	return s.State == StateSuccess || s.State == StateFail
}

// Submit creates a generation task and returns its id.
func (c *Client) Submit(ctx context.Context, in SubmitInput) (string, error) {
	if c.APIKey == "" {
		return "", &SubmitError{Message: "api key is not configured"}
	}
	if in.Prompt == "" || in.ImageURL == "" || in.VideoURL == "" {
		return "", &SubmitError{Message: "missing prompt, image url or video url"}
	}

	body, err := json.Marshal(submitReq{
		Model:       c.Model,
		CallBackURL: in.CallbackURL,
		Input: submitInput{
			Prompt:    in.Prompt,
			InputURLs: []string{in.ImageURL},
			VideoURLs: []string{in.VideoURL},
			Mode:      "720p",
		},
	})
	if err != nil {
		return "", err
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/jobs/createTask", bytes.NewReader(body))
	if err != nil {
		return "", &SubmitError{Message: err.Error()}
	}
	if env.Code != 200 {
		return "", &SubmitError{Code: env.Code, Message: env.Message}
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return "", &SubmitError{Code: env.Code, Message: "no taskId in response"}
	}
	return data.TaskID, nil
}

// Poll fetches the current status of a task.
func (c *Client) Poll(ctx context.Context, taskID string) (*Status, error) {
	path := "/api/v1/jobs/recordInfo?" + url.Values{"taskId": {taskID}}.Encode()
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &PollError{Message: err.Error()}
	}
	if env.Code != 200 {
		return nil, &PollError{Code: env.Code, Message: env.Message}
	}

	var st Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		return nil, &PollError{Code: env.Code, Message: "malformed status payload"}
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader) (*envelope, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// ResultURLs extracts the output media URLs from a success result payload.
func ResultURLs(resultJSON string) []string {
	if resultJSON == "" {
		return nil
	}
	var res struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil
	}
	return res.ResultURLs
}
