package youtube

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Credentials are one user's OAuth client + refresh token, entered during
// channel setup.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Channel struct {
	ID    string
	Title string
}

type UploadResult struct {
	VideoID   string
	URL       string
	ShortsURL string
}

// UploadError wraps any failure during an upload so callers can persist and
// surface the message.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return "youtube upload: " + e.Message }

// Client talks to the YouTube Data API on behalf of per-user credentials.
// It holds no state; a service is built per call from the refresh token.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) service(ctx context.Context, creds Credentials) (*yt.Service, error) {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes: []string{
			yt.YoutubeScope,
			yt.YoutubeUploadScope,
		},
		Endpoint: google.Endpoint,
	}
	token := &oauth2.Token{RefreshToken: creds.RefreshToken}
	httpClient := cfg.Client(ctx, token)

	svc, err := yt.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

// Verify checks the credentials by fetching the authenticated channel.
func (c *Client) Verify(ctx context.Context, creds Credentials) (*Channel, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("no channel found for the given credentials")
	}

	ch := resp.Items[0]
	return &Channel{ID: ch.Id, Title: ch.Snippet.Title}, nil
}

// Upload publishes the local video file as a public Short.
func (c *Client) Upload(ctx context.Context, creds Credentials, filePath, title, description string) (*UploadResult, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, &UploadError{Message: err.Error()}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, &UploadError{Message: fmt.Sprintf("open video file: %v", err)}
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  "22", // People & Blogs
			Tags:        []string{"AI", "Shorts", "Generated"},
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &UploadError{Message: err.Error()}
	}

	return &UploadResult{
		VideoID:   resp.Id,
		URL:       "https://www.youtube.com/watch?v=" + resp.Id,
		ShortsURL: "https://www.youtube.com/shorts/" + resp.Id,
	}, nil
}
