package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// ErrNoTranscript is returned when a video has no retrievable caption track,
// as opposed to a transport failure.
var ErrNoTranscript = errors.New("no transcript available")

// timedTextResponse is the timedtext json3 payload subset we consume.
type timedTextResponse struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// FetchTranscript retrieves the timed caption track of a video as an ordered
// segment sequence. Videos without captions yield ErrNoTranscript.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	u, err := url.Parse(c.timedTextURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("v", videoID)
	q.Set("lang", "en")
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()

	resp, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript for %s: %w", videoID, err)
	}
	// The endpoint answers 200 with an empty body when captions are
	// disabled or missing for the requested language.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	var payload timedTextResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode transcript for %s: %w", videoID, err)
	}

	transcript := &models.Transcript{VideoID: videoID}
	for _, ev := range payload.Events {
		var text strings.Builder
		for _, seg := range ev.Segs {
			text.WriteString(seg.UTF8)
		}
		trimmed := strings.TrimSpace(text.String())
		if trimmed == "" {
			continue
		}
		transcript.Segments = append(transcript.Segments, models.CaptionSegment{
			Text:     trimmed,
			Start:    float64(ev.StartMs) / 1000.0,
			Duration: float64(ev.DurationMs) / 1000.0,
		})
	}
	if len(transcript.Segments) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}
	return transcript, nil
}
