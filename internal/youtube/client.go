// Package youtube provides access to the YouTube Data API and caption service.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// Client provides access to the YouTube Data API v3 and the timedtext
// caption endpoint. Requests are single-shot; callers decide how to react
// to per-item failures.
type Client struct {
	apiKey       string
	apiURL       string
	timedTextURL string
	pageSize     int
	httpClient   *http.Client
}

// NewClient creates a new YouTube client.
func NewClient(apiKey, apiURL, timedTextURL string, pageSize int, timeout time.Duration) *Client {
	return &Client{
		apiKey:       apiKey,
		apiURL:       apiURL,
		timedTextURL: timedTextURL,
		pageSize:     pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// channelListResponse is the channels.list payload subset we consume.
type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// UploadsPlaylistID resolves the uploads feed identifier for a channel.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	u, err := url.Parse(c.apiURL + "/channels")
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("part", "contentDetails")
	q.Set("id", channelID)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	resp, err := c.get(ctx, u.String())
	if err != nil {
		return "", fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	var payload channelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode channel response: %w", err)
	}
	if len(payload.Items) == 0 {
		return "", fmt.Errorf("channel not found: %s", channelID)
	}
	uploads := payload.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return "", fmt.Errorf("channel %s has no uploads playlist", channelID)
	}
	return uploads, nil
}

// FeedPage is one page of a channel's uploads feed, newest first.
type FeedPage struct {
	Items         []models.VideoRef
	NextPageToken string
}

// playlistItemsResponse is the playlistItems.list payload subset we consume.
type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID          string    `json:"videoId"`
			VideoPublishedAt time.Time `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// PlaylistItemsPage fetches one page of an uploads feed. An empty pageToken
// requests the first (newest) page.
func (c *Client) PlaylistItemsPage(ctx context.Context, playlistID, channelID, pageToken string) (*FeedPage, error) {
	u, err := url.Parse(c.apiURL + "/playlistItems")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("part", "contentDetails")
	q.Set("playlistId", playlistID)
	q.Set("maxResults", strconv.Itoa(c.pageSize))
	q.Set("key", c.apiKey)
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	u.RawQuery = q.Encode()

	resp, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
	}
	defer resp.Body.Close()

	var payload playlistItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode playlist response: %w", err)
	}

	page := &FeedPage{NextPageToken: payload.NextPageToken}
	for _, item := range payload.Items {
		page.Items = append(page.Items, models.VideoRef{
			VideoID:     item.ContentDetails.VideoID,
			ChannelID:   channelID,
			PublishedAt: item.ContentDetails.VideoPublishedAt,
		})
	}
	return page, nil
}

// get performs a single GET request and treats non-2xx statuses as errors.
func (c *Client) get(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp, nil
}
