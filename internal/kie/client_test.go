package kie

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmit(t *testing.T) {
	var gotBody submitReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs/createTask" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200, "message": "success",
			"data": map[string]string{"taskId": "task-123"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	taskID, err := c.Submit(context.Background(), SubmitInput{
		Prompt:      "dance",
		ImageURL:    "https://a/img.jpg",
		VideoURL:    "https://a/vid.mp4",
		CallbackURL: "https://me/api/callback?token=x",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if taskID != "task-123" {
		t.Fatalf("taskID = %q", taskID)
	}

	if gotBody.Model != "kling-2.6/motion-control" {
		t.Fatalf("model = %q", gotBody.Model)
	}
	if gotBody.Input.Mode != "720p" {
		t.Fatalf("mode = %q", gotBody.Input.Mode)
	}
	if len(gotBody.Input.InputURLs) != 1 || gotBody.Input.InputURLs[0] != "https://a/img.jpg" {
		t.Fatalf("input_urls = %v", gotBody.Input.InputURLs)
	}
	if len(gotBody.Input.VideoURLs) != 1 || gotBody.Input.VideoURLs[0] != "https://a/vid.mp4" {
		t.Fatalf("video_urls = %v", gotBody.Input.VideoURLs)
	}
	if gotBody.CallBackURL != "https://me/api/callback?token=x" {
		t.Fatalf("callBackUrl = %q", gotBody.CallBackURL)
	}
}

func TestSubmit_BusinessError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 402, "message": "insufficient credits"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Submit(context.Background(), SubmitInput{
		Prompt: "x", ImageURL: "https://a/i", VideoURL: "https://a/v",
	})
	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if se.Code != 402 {
		t.Fatalf("code = %d, want 402", se.Code)
	}
}

func TestSubmit_RejectsMissingInput(t *testing.T) {
	c := NewClient("http://unused", "key")
	if _, err := c.Submit(context.Background(), SubmitInput{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for missing urls")
	}
}

func TestPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("taskId"); got != "task-123" {
			t.Errorf("taskId = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200, "message": "success",
			"data": map[string]any{
				"taskId":     "task-123",
				"state":      "success",
				"resultJson": `{"resultUrls":["https://cdn/v.mp4"]}`,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	st, err := c.Poll(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !st.Terminal() || st.State != StateSuccess {
		t.Fatalf("state = %q", st.State)
	}
	urls := ResultURLs(st.ResultJSON)
	if len(urls) != 1 || urls[0] != "https://cdn/v.mp4" {
		t.Fatalf("urls = %v", urls)
	}
}

func TestPoll_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Poll(context.Background(), "task-123")
	var pe *PollError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PollError, got %v", err)
	}
}

func TestResultURLs_Malformed(t *testing.T) {
	if got := ResultURLs(""); got != nil {
		t.Fatalf("empty input: %v", got)
	}
	if got := ResultURLs("{not json"); got != nil {
		t.Fatalf("malformed input: %v", got)
	}
	if got := ResultURLs(`{"resultUrls":[]}`); len(got) != 0 {
		t.Fatalf("empty urls: %v", got)
	}
}
