package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

type Database struct {
	db                 *sql.DB
	preparedStatements map[preparedStatementKey]*sql.Stmt
}

const (
	searchStmt             preparedStatementKey = "searchStmt"
	listFramesForwardStmt  preparedStatementKey = "listFramesForwardStmt"
	listFramesBackwardStmt preparedStatementKey = "listFramesBackwardStmt"
	episodeStmt            preparedStatementKey = "episodeStmt"
	statsStmt              preparedStatementKey = "statsStmt"
)

const DefaultSearchLimit = 100

func OpenDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, err
	}

	preparedStatements := make(map[preparedStatementKey]*sql.Stmt)
	for key, query := range map[preparedStatementKey]string{
		searchStmt:             `SELECT episodes.season, episodes.episode, episodes.code, subtitles.start_ts, subtitles.end_ts, subtitles.midpoint_ts, subtitles.text_clean, COALESCE(frames.frame_key, ''), COALESCE(frames.thumb_key, '') FROM subtitles_fts INNER JOIN subtitles ON subtitles.id = subtitles_fts.docid INNER JOIN episodes ON subtitles.episode_id = episodes.id LEFT JOIN frames ON frames.episode_id = subtitles.episode_id AND frames.timestamp = subtitles.midpoint_ts WHERE subtitles_fts MATCH ? ORDER BY episodes.season, episodes.episode, subtitles.midpoint_ts LIMIT ?`,
		listFramesForwardStmt:  `SELECT timestamp, frame_key, thumb_key FROM frames WHERE episode_id = (SELECT id FROM episodes WHERE season = ? AND episode = ?) AND timestamp >= ? ORDER BY timestamp ASC LIMIT ?`,
		listFramesBackwardStmt: `SELECT timestamp, frame_key, thumb_key FROM frames WHERE episode_id = (SELECT id FROM episodes WHERE season = ? AND episode = ?) AND timestamp <= ? ORDER BY timestamp DESC LIMIT ?`,
		episodeStmt:            `SELECT season, episode, code, video_path, subtitle_path, subtitle_source FROM episodes WHERE season = ? AND episode = ?`,
		statsStmt:              `SELECT (SELECT COUNT(*) FROM episodes), (SELECT COUNT(*) FROM subtitles), (SELECT COUNT(*) FROM frames)`,
	} {
		stmt, err := db.Prepare(query)
		if err != nil {
			db.Close() // nolint: errcheck
			return nil, err
		}

		preparedStatements[key] = stmt
	}

	return &Database{
		db:                 db,
		preparedStatements: preparedStatements,
	}, nil
}

type SearchResult struct {
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Code      string `json:"code"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Timestamp uint64 `json:"timestamp"`
	Text      string `json:"text"`
	Frame     string `json:"frame,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
}

// MatchQuery turns free text into an FTS query. Each word must match; with
// prefix set, words also match as prefixes. An empty result means the text
// had no searchable words.
func MatchQuery(text string, prefix bool) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "'")
		if word == "" {
			continue
		}
		term := `"` + word + `"`
		if prefix {
			term = `"` + word + `*"`
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

// Search runs a full text search over cleaned subtitle text.
func (d *Database) Search(ctx context.Context, queryString string, prefix bool, limit int) ([]SearchResult, error) {
	match := MatchQuery(queryString, prefix)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := d.preparedStatements[searchStmt].QueryContext(ctx, match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		err := rows.Scan(
			&result.Season, &result.Episode, &result.Code,
			&result.Start, &result.End, &result.Timestamp,
			&result.Text, &result.Frame, &result.Thumb,
		)
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// ListFrames returns up to count frames of an episode starting at timestamp,
// going backwards when reverse is set.
func (d *Database) ListFrames(ctx context.Context, season int, episode int, timestamp uint64, count int, reverse bool) ([]FrameMetadata, error) {
	var stmtKey preparedStatementKey
	if reverse {
		stmtKey = listFramesBackwardStmt
	} else {
		stmtKey = listFramesForwardStmt
	}

	rows, err := d.preparedStatements[stmtKey].QueryContext(ctx, season, episode, timestamp, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FrameMetadata
	for rows.Next() {
		result := FrameMetadata{}
		err := rows.Scan(&result.Timestamp, &result.FrameKey, &result.ThumbKey)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetEpisode returns the stored episode without its subtitles or frames. It
// returns sql.ErrNoRows for an unknown episode.
func (d *Database) GetEpisode(ctx context.Context, season int, episode int) (*EpisodeMetadata, error) {
	var m EpisodeMetadata
	err := d.preparedStatements[episodeStmt].QueryRowContext(ctx, season, episode).Scan(
		&m.Season, &m.Episode, &m.Code, &m.VideoPath, &m.SubtitlePath, &m.SubtitleSource,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type Stats struct {
	Episodes  int `json:"episodes"`
	Subtitles int `json:"subtitles"`
	Frames    int `json:"frames"`
}

func (d *Database) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.preparedStatements[statsStmt].QueryRowContext(ctx).Scan(&s.Episodes, &s.Subtitles, &s.Frames)
	return s, err
}

func (d *Database) Close() error {
	return d.db.Close()
}
