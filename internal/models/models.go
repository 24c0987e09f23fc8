// Package models defines the core domain entities: channels, videos,
// transcripts, and purchase records.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ChannelEntry is one row of the creator source list. Entries are processed
// in descending Priority order; ties keep file order.
type ChannelEntry struct {
	Name      string `json:"name"`
	ChannelID string `json:"channel_id"`
	Priority  int    `json:"priority"`
}

// Validate checks channel entry field constraints.
func (c *ChannelEntry) Validate() error {
	if c.Name == "" {
		return errors.New("channel name must not be empty")
	}
	if c.ChannelID == "" {
		return errors.New("channel ID must not be empty")
	}
	return nil
}

// VideoRef identifies one upload selected by video discovery.
type VideoRef struct {
	VideoID     string    `json:"video_id"`
	ChannelID   string    `json:"channel_id"`
	PublishedAt time.Time `json:"published_at"`
}

// CaptionSegment is a single timed caption from a video transcript.
// Start and Duration are in seconds.
type CaptionSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the ordered caption sequence of one video.
type Transcript struct {
	VideoID  string           `json:"video_id"`
	Segments []CaptionSegment `json:"segments"`
}

// JSON serializes the transcript as a JSON document.
func (t *Transcript) JSON() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Text concatenates the caption segments into plain transcript text.
func (t *Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// SentinelPrice marks a failed price lookup, distinct from a legitimate
// zero price.
const SentinelPrice = -1.0

// ExpirationLayout is the ledger date format for purchase expirations.
const ExpirationLayout = "2006/01/02"

// PurchaseRecord is one simulated purchase appended to the ledger.
type PurchaseRecord struct {
	ID         string    `json:"id"`
	Asset      string    `json:"asset"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	Expiration time.Time `json:"expiration"`
}

// Validate checks purchase record field constraints. Price may be the
// lookup-failure sentinel but no other negative value.
func (p *PurchaseRecord) Validate() error {
	if p.Asset == "" {
		return errors.New("asset must not be empty")
	}
	if p.Price < 0 && p.Price != SentinelPrice {
		return errors.New("price must be non-negative or the failure sentinel")
	}
	if p.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if p.Expiration.IsZero() {
		return errors.New("expiration must be set")
	}
	return nil
}
