// Package fetcher orchestrates the asset discovery pipeline: video
// discovery over prioritized channels, transcript retrieval, ticker
// extraction, and frequency aggregation.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/autoinvest/internal/extract"
	"github.com/rewired-gh/autoinvest/internal/logger"
	"github.com/rewired-gh/autoinvest/internal/models"
	"github.com/rewired-gh/autoinvest/internal/youtube"
)

// Config holds discovery pipeline configuration.
type Config struct {
	WindowDays   int
	MaxAssets    int
	MaxFeedPages int
}

// FeedSource lists channel uploads and fetches transcripts.
type FeedSource interface {
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)
	PlaylistItemsPage(ctx context.Context, playlistID, channelID, pageToken string) (*youtube.FeedPage, error)
	FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
}

// TickerExtractor extracts recommended tickers from one transcript.
type TickerExtractor interface {
	Extract(ctx context.Context, transcript *models.Transcript) ([]string, error)
}

// SeenStore filters and records videos across runs.
type SeenStore interface {
	FilterUnseen(refs []models.VideoRef) ([]models.VideoRef, error)
	MarkSeen(ref models.VideoRef) error
}

// TranscriptResult is the per-video outcome of transcript retrieval.
// Unavailable transcripts are skips, not run failures.
type TranscriptResult struct {
	Ref        models.VideoRef
	Transcript *models.Transcript
	Skipped    bool
	Reason     string
}

// Fetcher runs the discovery and extraction pipeline sequentially.
type Fetcher struct {
	source    FeedSource
	extractor TickerExtractor
	seen      SeenStore // optional; nil disables cross-run dedup
	config    Config
	now       func() time.Time
}

// New creates a fetcher. seen may be nil to process every discovered video
// regardless of previous runs.
func New(source FeedSource, extractor TickerExtractor, seen SeenStore, cfg Config) *Fetcher {
	return &Fetcher{
		source:    source,
		extractor: extractor,
		seen:      seen,
		config:    cfg,
		now:       time.Now,
	}
}

// SetNow overrides the clock, for deterministic runs.
func (f *Fetcher) SetNow(now func() time.Time) {
	f.now = now
}

// DiscoverVideos lists uploads within the recency window for each channel,
// in the given (priority) order. Output is grouped by channel, newest first
// within a channel. A channel whose feed lookup fails is skipped with a
// warning; the run continues with the remaining channels.
func (f *Fetcher) DiscoverVideos(ctx context.Context, channels []models.ChannelEntry) []models.VideoRef {
	now := f.now()
	threshold := now.AddDate(0, 0, -f.config.WindowDays)

	var refs []models.VideoRef
	for _, channel := range channels {
		channelRefs, err := f.discoverChannel(ctx, channel, threshold, now)
		if err != nil {
			logger.Warn("Skipping channel %s (%s): %v", channel.Name, channel.ChannelID, err)
			continue
		}
		logger.Debug("Channel %s: %d videos in window", channel.Name, len(channelRefs))
		refs = append(refs, channelRefs...)
	}
	return refs
}

// discoverChannel pages through one uploads feed newest-first, stopping at
// the first item published before the window threshold. The feed is assumed
// sorted newest to oldest, which makes the early exit valid.
func (f *Fetcher) discoverChannel(ctx context.Context, channel models.ChannelEntry, threshold, now time.Time) ([]models.VideoRef, error) {
	playlistID, err := f.source.UploadsPlaylistID(ctx, channel.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads feed: %w", err)
	}

	var refs []models.VideoRef
	pageToken := ""
	for page := 0; page < f.config.MaxFeedPages; page++ {
		feedPage, err := f.source.PlaylistItemsPage(ctx, playlistID, channel.ChannelID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed page: %w", err)
		}
		for _, item := range feedPage.Items {
			if item.PublishedAt.Before(threshold) {
				return refs, nil
			}
			if item.PublishedAt.After(now) {
				continue
			}
			refs = append(refs, item)
		}
		if feedPage.NextPageToken == "" {
			break
		}
		pageToken = feedPage.NextPageToken
	}
	return refs, nil
}

// FetchTranscripts retrieves transcripts for the given videos, preserving
// relative order. Failures skip the video and are reported in the result,
// never aborting the run.
func (f *Fetcher) FetchTranscripts(ctx context.Context, refs []models.VideoRef) []TranscriptResult {
	results := make([]TranscriptResult, 0, len(refs))
	for _, ref := range refs {
		transcript, err := f.source.FetchTranscript(ctx, ref.VideoID)
		if err != nil {
			logger.Warn("Skipping video %s: %v", ref.VideoID, err)
			results = append(results, TranscriptResult{Ref: ref, Skipped: true, Reason: err.Error()})
			continue
		}
		results = append(results, TranscriptResult{Ref: ref, Transcript: transcript})
	}
	return results
}

// FetchAssets runs the full pipeline over the given channels and returns the
// ranked unique ticker list, capped at MaxAssets.
func (f *Fetcher) FetchAssets(ctx context.Context, channels []models.ChannelEntry) ([]string, error) {
	refs := f.DiscoverVideos(ctx, channels)
	logger.Info("Discovered %d videos across %d channels", len(refs), len(channels))

	if f.seen != nil {
		unseen, err := f.seen.FilterUnseen(refs)
		if err != nil {
			return nil, fmt.Errorf("failed to filter seen videos: %w", err)
		}
		logger.Info("Seen-video cache: %d of %d videos are new", len(unseen), len(refs))
		refs = unseen
		for _, ref := range refs {
			if err := f.seen.MarkSeen(ref); err != nil {
				logger.Warn("Failed to record video %s as seen: %v", ref.VideoID, err)
			}
		}
	}

	results := f.FetchTranscripts(ctx, refs)

	var lists [][]string
	fetched, skipped := 0, 0
	for _, res := range results {
		if res.Skipped {
			skipped++
			continue
		}
		fetched++
		tickers, err := f.extractor.Extract(ctx, res.Transcript)
		if err != nil {
			logger.Warn("Extraction failed for video %s, treating as empty: %v", res.Ref.VideoID, err)
			continue
		}
		lists = append(lists, tickers)
	}
	logger.Info("Transcripts: %d fetched, %d skipped", fetched, skipped)

	ranked := extract.Aggregate(lists)
	if len(ranked) > f.config.MaxAssets {
		ranked = ranked[:f.config.MaxAssets]
	}
	logger.Info("Aggregated %d recommended assets", len(ranked))
	return ranked, nil
}
