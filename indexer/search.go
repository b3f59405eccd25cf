// Package indexer builds the search index consumed by the generated site.
package indexer

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/objstore"
	"github.com/jaym/anytron/subtitle"
)

// IndexVersion is bumped when the index document changes shape.
const IndexVersion = 1

// EpisodeEntries pairs an episode with its parsed subtitle entries.
type EpisodeEntries struct {
	Episode discovery.Episode
	Entries []subtitle.Entry
}

// SearchEntry is one searchable quote.
type SearchEntry struct {
	// ID is <episode>-<timestamp>.
	ID        string `json:"id"`
	Text      string `json:"text"`
	Episode   string `json:"episode"`
	Timestamp uint64 `json:"timestamp"`
	Frame     string `json:"frame"`
	Thumb     string `json:"thumb"`
}

type SearchMeta struct {
	Total       int    `json:"total"`
	Episodes    int    `json:"episodes"`
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
	RunID       string `json:"run_id"`
	Schema      int    `json:"schema"`
}

type SearchIndex struct {
	Entries []SearchEntry `json:"entries"`
	Meta    SearchMeta    `json:"meta"`
}

// Config is the client side search configuration written next to the index.
type Config struct {
	Fields   []string `json:"fields"`
	Ref      string   `json:"ref"`
	Pipeline []string `json:"pipeline"`
}

type Indexer struct {
	fields []string
	now    func() time.Time
}

// NewIndexer creates an indexer over fields, defaulting to text and episode.
func NewIndexer(fields []string) *Indexer {
	if len(fields) == 0 {
		fields = []string{"text", "episode"}
	}
	return &Indexer{fields: fields, now: time.Now}
}

// Build creates the index for the given episodes. runID identifies the
// generation run and doubles as the cache busting version.
func (i *Indexer) Build(episodes []EpisodeEntries, runID string) *SearchIndex {
	total := 0
	for _, e := range episodes {
		total += len(e.Entries)
	}

	ordered := slices.Clone(episodes)
	slices.SortStableFunc(ordered, func(a, b EpisodeEntries) int {
		return a.Episode.ID.Compare(b.Episode.ID)
	})

	entries := make([]SearchEntry, 0, total)
	for _, e := range ordered {
		episodeID := e.Episode.ID.String()
		start := len(entries)
		for _, entry := range e.Entries {
			ts := entry.Midpoint().Millis()
			entries = append(entries, SearchEntry{
				ID:        entry.ID(episodeID),
				Text:      entry.TextClean,
				Episode:   episodeID,
				Timestamp: ts,
				Frame:     objstore.FrameKey(episodeID, ts),
				Thumb:     objstore.ThumbKey(episodeID, ts),
			})
		}
		slices.SortStableFunc(entries[start:], func(a, b SearchEntry) int {
			return cmp.Compare(a.Timestamp, b.Timestamp)
		})
	}

	return &SearchIndex{
		Entries: entries,
		Meta: SearchMeta{
			Total:       len(entries),
			Episodes:    len(episodes),
			GeneratedAt: i.now().UTC().Format(time.RFC3339),
			Version:     runID,
			RunID:       runID,
			Schema:      IndexVersion,
		},
	}
}

// Config returns the client side search configuration.
func (i *Indexer) Config() Config {
	return Config{
		Fields:   i.fields,
		Ref:      "id",
		Pipeline: []string{"trimmer", "stopWordFilter", "stemmer"},
	}
}

// Write stores the index and its configuration in w.
func (i *Indexer) Write(w objstore.ObjectWriter, index *SearchIndex) error {
	if err := writeJSON(w, objstore.SearchIndexKey, index); err != nil {
		return err
	}
	return writeJSON(w, objstore.SearchConfigKey, i.Config())
}

func writeJSON(w objstore.ObjectWriter, key string, v any) error {
	f, err := w.Create(key)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", key, err)
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close() // nolint: errcheck
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	return f.Close()
}
