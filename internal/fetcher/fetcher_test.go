package fetcher

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rewired-gh/autoinvest/internal/logger"
	"github.com/rewired-gh/autoinvest/internal/models"
	"github.com/rewired-gh/autoinvest/internal/youtube"
)

func init() {
	logger.Init("error", "text")
}

var day0 = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return day0.AddDate(0, 0, -n)
}

// fakeSource serves canned feeds and transcripts and counts page fetches.
type fakeSource struct {
	// feeds maps channelID to pages of refs; page tokens are "p1", "p2", ...
	feeds       map[string][][]models.VideoRef
	badChannels map[string]bool
	transcripts map[string]string // videoID -> text; missing means unavailable
	pageFetches int
}

func (s *fakeSource) UploadsPlaylistID(_ context.Context, channelID string) (string, error) {
	if s.badChannels[channelID] {
		return "", errors.New("channel not found")
	}
	return "UU" + channelID, nil
}

func (s *fakeSource) PlaylistItemsPage(_ context.Context, playlistID, channelID, pageToken string) (*youtube.FeedPage, error) {
	s.pageFetches++
	pages := s.feeds[channelID]
	idx := 0
	if pageToken != "" {
		if _, err := fmt.Sscanf(pageToken, "p%d", &idx); err != nil {
			return nil, err
		}
	}
	if idx >= len(pages) {
		return &youtube.FeedPage{}, nil
	}
	page := &youtube.FeedPage{Items: pages[idx]}
	if idx+1 < len(pages) {
		page.NextPageToken = fmt.Sprintf("p%d", idx+1)
	}
	return page, nil
}

func (s *fakeSource) FetchTranscript(_ context.Context, videoID string) (*models.Transcript, error) {
	text, ok := s.transcripts[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, youtube.ErrNoTranscript)
	}
	return &models.Transcript{
		VideoID:  videoID,
		Segments: []models.CaptionSegment{{Text: text, Start: 0, Duration: 1}},
	}, nil
}

// fakeExtractor maps transcript text to a canned ticker list.
type fakeExtractor struct {
	byText map[string][]string
	errFor string
}

func (e *fakeExtractor) Extract(_ context.Context, tr *models.Transcript) ([]string, error) {
	text := tr.Text()
	if text == e.errFor {
		return nil, errors.New("completion failed")
	}
	return e.byText[text], nil
}

// fakeSeen remembers marked video IDs in memory.
type fakeSeen struct {
	ids map[string]bool
}

func (s *fakeSeen) FilterUnseen(refs []models.VideoRef) ([]models.VideoRef, error) {
	var out []models.VideoRef
	for _, ref := range refs {
		if !s.ids[ref.VideoID] {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *fakeSeen) MarkSeen(ref models.VideoRef) error {
	s.ids[ref.VideoID] = true
	return nil
}

func ref(videoID, channelID string, published time.Time) models.VideoRef {
	return models.VideoRef{VideoID: videoID, ChannelID: channelID, PublishedAt: published}
}

func newFetcher(source FeedSource, extractor TickerExtractor, seen SeenStore) *Fetcher {
	f := New(source, extractor, seen, Config{WindowDays: 5, MaxAssets: 5, MaxFeedPages: 10})
	f.SetNow(func() time.Time { return day0 })
	return f
}

func TestDiscoverVideosWindowAndEarlyExit(t *testing.T) {
	source := &fakeSource{
		feeds: map[string][][]models.VideoRef{
			"UC1": {
				{ref("v-new", "UC1", daysAgo(0)), ref("v-mid", "UC1", daysAgo(2)), ref("v-old", "UC1", daysAgo(6))},
				{ref("v-ancient", "UC1", daysAgo(30))},
			},
		},
	}
	f := newFetcher(source, &fakeExtractor{}, nil)

	refs := f.DiscoverVideos(context.Background(), []models.ChannelEntry{
		{Name: "A", ChannelID: "UC1", Priority: 1},
	})

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].VideoID != "v-new" || refs[1].VideoID != "v-mid" {
		t.Errorf("unexpected selection: %+v", refs)
	}
	// Paging must stop at the first out-of-window item: the second page is
	// never requested.
	if source.pageFetches != 1 {
		t.Errorf("fetched %d pages, want 1 (early exit)", source.pageFetches)
	}
}

func TestDiscoverVideosGroupsByChannelPriorityOrder(t *testing.T) {
	source := &fakeSource{
		feeds: map[string][][]models.VideoRef{
			"UC1": {{ref("a-new", "UC1", daysAgo(1)), ref("a-older", "UC1", daysAgo(3))}},
			"UC2": {{ref("b-new", "UC2", daysAgo(2))}},
		},
	}
	f := newFetcher(source, &fakeExtractor{}, nil)

	refs := f.DiscoverVideos(context.Background(), []models.ChannelEntry{
		{Name: "B", ChannelID: "UC2", Priority: 5},
		{Name: "A", ChannelID: "UC1", Priority: 1},
	})

	got := make([]string, len(refs))
	for i, r := range refs {
		got[i] = r.VideoID
	}
	// Channel grouping follows input (priority) order; newest first within a
	// channel, regardless of cross-channel timestamps.
	want := []string{"b-new", "a-new", "a-older"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("refs = %v, want %v", got, want)
	}
}

func TestDiscoverVideosSkipsFailingChannel(t *testing.T) {
	source := &fakeSource{
		feeds: map[string][][]models.VideoRef{
			"UC2": {{ref("b-new", "UC2", daysAgo(1))}},
		},
		badChannels: map[string]bool{"UC1": true},
	}
	f := newFetcher(source, &fakeExtractor{}, nil)

	refs := f.DiscoverVideos(context.Background(), []models.ChannelEntry{
		{Name: "A", ChannelID: "UC1", Priority: 5},
		{Name: "B", ChannelID: "UC2", Priority: 1},
	})

	if len(refs) != 1 || refs[0].VideoID != "b-new" {
		t.Errorf("expected only the healthy channel's video, got %+v", refs)
	}
}

func TestFetchTranscriptsSkipsUnavailable(t *testing.T) {
	source := &fakeSource{
		transcripts: map[string]string{"v1": "buy apple", "v3": "buy micron"},
	}
	f := newFetcher(source, &fakeExtractor{}, nil)

	refs := []models.VideoRef{
		ref("v1", "UC1", daysAgo(1)),
		ref("v2", "UC1", daysAgo(2)),
		ref("v3", "UC1", daysAgo(3)),
	}
	results := f.FetchTranscripts(context.Background(), refs)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Skipped || results[2].Skipped {
		t.Error("available transcripts reported as skipped")
	}
	if !results[1].Skipped || results[1].Reason == "" {
		t.Errorf("unavailable transcript not reported: %+v", results[1])
	}
	// Relative order of successes is preserved.
	if results[0].Transcript.VideoID != "v1" || results[2].Transcript.VideoID != "v3" {
		t.Errorf("order not preserved: %+v", results)
	}
}

func TestFetchAssetsEndToEnd(t *testing.T) {
	source := &fakeSource{
		feeds: map[string][][]models.VideoRef{
			"UC1": {{ref("v1", "UC1", daysAgo(1)), ref("v2", "UC1", daysAgo(2))}},
			"UC2": {{ref("v3", "UC2", daysAgo(1)), ref("v4", "UC2", daysAgo(2))}},
		},
		transcripts: map[string]string{
			"v1": "t1",
			"v2": "t2",
			// v3 has no transcript: skipped.
			"v4": "t4",
		},
	}
	extractor := &fakeExtractor{
		byText: map[string][]string{
			"t1": {"AAPL", "MU"},
			"t2": {"MU", "TSM"},
		},
		errFor: "t4", // extraction failure treated as empty
	}
	f := newFetcher(source, extractor, nil)

	channels := []models.ChannelEntry{
		{Name: "A", ChannelID: "UC1", Priority: 5},
		{Name: "B", ChannelID: "UC2", Priority: 1},
	}
	assets, err := f.FetchAssets(context.Background(), channels)
	if err != nil {
		t.Fatalf("FetchAssets: %v", err)
	}
	// MU counts 2; AAPL and TSM count 1 with AAPL first seen.
	want := []string{"MU", "AAPL", "TSM"}
	if !reflect.DeepEqual(assets, want) {
		t.Errorf("assets = %v, want %v", assets, want)
	}
}

func TestFetchAssetsCapsAtMaxAssets(t *testing.T) {
	source := &fakeSource{
		feeds:       map[string][][]models.VideoRef{"UC1": {{ref("v1", "UC1", daysAgo(1))}}},
		transcripts: map[string]string{"v1": "t1"},
	}
	extractor := &fakeExtractor{
		byText: map[string][]string{"t1": {"A", "B", "C", "D"}},
	}
	f := New(source, extractor, nil, Config{WindowDays: 5, MaxAssets: 2, MaxFeedPages: 10})
	f.SetNow(func() time.Time { return day0 })

	assets, err := f.FetchAssets(context.Background(), []models.ChannelEntry{{Name: "A", ChannelID: "UC1", Priority: 1}})
	if err != nil {
		t.Fatalf("FetchAssets: %v", err)
	}
	if !reflect.DeepEqual(assets, []string{"A", "B"}) {
		t.Errorf("assets = %v, want [A B]", assets)
	}
}

func TestFetchAssetsSkipsSeenVideos(t *testing.T) {
	source := &fakeSource{
		feeds: map[string][][]models.VideoRef{
			"UC1": {{ref("v1", "UC1", daysAgo(1)), ref("v2", "UC1", daysAgo(2))}},
		},
		transcripts: map[string]string{"v1": "t1", "v2": "t2"},
	}
	extractor := &fakeExtractor{
		byText: map[string][]string{"t1": {"AAPL"}, "t2": {"TSM"}},
	}
	seen := &fakeSeen{ids: map[string]bool{"v1": true}}
	f := newFetcher(source, extractor, seen)

	channels := []models.ChannelEntry{{Name: "A", ChannelID: "UC1", Priority: 1}}
	assets, err := f.FetchAssets(context.Background(), channels)
	if err != nil {
		t.Fatalf("FetchAssets: %v", err)
	}
	if !reflect.DeepEqual(assets, []string{"TSM"}) {
		t.Errorf("assets = %v, want [TSM] (v1 already seen)", assets)
	}
	if !seen.ids["v2"] {
		t.Error("newly processed video not recorded as seen")
	}
}
