// Package extract turns video transcripts into ranked stock-ticker
// recommendations via a language-model completion call.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rewired-gh/autoinvest/internal/logger"
	"github.com/rewired-gh/autoinvest/internal/models"
)

// systemInstruction is the fixed extraction persona sent with every request.
const systemInstruction = `You are a financial analyst assistant. You read video transcripts ` +
	`from finance content creators and extract the stock tickers they recommend buying. ` +
	`Respond with a JSON object of the form {"recommended_stocks": ["TICKER", ...]}. ` +
	`Include only explicit buy recommendations. Respond with JSON only, no prose.`

// promptTemplate embeds one transcript per completion request.
const promptTemplate = `Extract the recommended stock tickers from the following video transcript.

Transcript:
%s`

// Completer sends one completion request and returns the response text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Extractor extracts ticker recommendations from transcripts.
type Extractor struct {
	client Completer
}

// NewExtractor creates an extractor over the given completion client.
func NewExtractor(client Completer) *Extractor {
	return &Extractor{client: client}
}

// recommendationPayload is the JSON object expected from the model.
type recommendationPayload struct {
	RecommendedStocks []string `json:"recommended_stocks"`
}

// Extract sends one completion request for the transcript and parses the
// ticker list out of the response. Malformed model output is not an error:
// it is logged with the raw payload and yields an empty list. The returned
// error covers the completion call itself.
func (e *Extractor) Extract(ctx context.Context, transcript *models.Transcript) ([]string, error) {
	prompt := fmt.Sprintf(promptTemplate, transcript.Text())

	raw, err := e.client.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed for video %s: %w", transcript.VideoID, err)
	}

	tickers, ok := parseRecommendations(raw)
	if !ok {
		logger.Warn("Failed to parse recommendations for video %s, treating as empty; raw response: %s",
			transcript.VideoID, raw)
		return []string{}, nil
	}
	return tickers, nil
}

// parseRecommendations extracts the recommended_stocks list from model output.
// It tolerates code fences and surrounding prose; a missing or mistyped field
// reads as an empty list.
func parseRecommendations(raw string) ([]string, bool) {
	cleaned := stripFences(raw)
	obj := firstJSONObject(cleaned)
	if obj == "" {
		return nil, false
	}

	var payload recommendationPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, false
	}
	if payload.RecommendedStocks == nil {
		return []string{}, true
	}
	return payload.RecommendedStocks, true
}

// stripFences removes markdown code fences from model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} substring of s, or "".
// Braces inside JSON strings are ignored.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
