// Package channels loads the prioritized creator source list.
package channels

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// Load parses the creator list at path and returns the entries ordered by
// descending priority, ties keeping file order. The file is a header row
// followed by rows of name,channel_id,priority. Any malformed row fails the
// whole load.
func Load(path string) ([]models.ChannelEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open channels file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse channels file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("channels file %s is empty", path)
	}

	// First row is the header.
	entries := make([]models.ChannelEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		priority, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid priority %q: %w", i+2, row[2], err)
		}
		entry := models.ChannelEntry{
			Name:      strings.TrimSpace(row[0]),
			ChannelID: strings.TrimSpace(row[1]),
			Priority:  priority,
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, entry)
	}

	// Stable sort keeps file order for equal priorities.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})

	return entries, nil
}
