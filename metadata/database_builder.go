package metadata

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type preparedStatementKey string

const (
	insertRunStmt      preparedStatementKey = "insertRunStmt"
	insertEpisodeStmt  preparedStatementKey = "insertEpisodeStmt"
	insertSubtitleStmt preparedStatementKey = "insertSubtitleStmt"
	insertFtsStmt      preparedStatementKey = "insertFtsStmt"
	insertFrameStmt    preparedStatementKey = "insertFrameStmt"
)

// DatabaseBuilder writes a fresh metadata database next to dbPath and moves
// it into place on Build, so readers never see a partial database.
type DatabaseBuilder struct {
	db                 *sql.DB
	preparedStatements map[preparedStatementKey]*sql.Stmt
	outputDatabasePath string
	tmpDatabasePath    string
}

func NewDatabaseBuilder(dbPath string) (*DatabaseBuilder, error) {
	tmpDbPath := filepath.Join(filepath.Dir(dbPath), "tmp.db")
	if _, err := os.Stat(tmpDbPath); err == nil {
		if err := os.Remove(tmpDbPath); err != nil {
			log.Error().Err(err).Msg("Failed to remove temporary database")
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", tmpDbPath)
	if err != nil {
		return nil, err
	}

	schemaBytes, err := SchemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close() // nolint: errcheck
		log.Error().Err(err).Msg("Failed to read schema.sql")
		return nil, err
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		db.Close() // nolint: errcheck
		log.Error().Err(err).Msg("Failed to execute schema.sql")
		return nil, err
	}

	preparedStatements := make(map[preparedStatementKey]*sql.Stmt)
	for key, stmt := range map[preparedStatementKey]string{
		insertRunStmt:      `INSERT INTO runs (id, generated_at) VALUES (?, ?)`,
		insertEpisodeStmt:  `INSERT INTO episodes (season, episode, code, video_path, subtitle_path, subtitle_source) VALUES (?, ?, ?, ?, ?, ?)`,
		insertSubtitleStmt: `INSERT INTO subtitles (episode_id, idx, start_ts, end_ts, midpoint_ts, text, text_clean) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		insertFtsStmt:      `INSERT INTO subtitles_fts (docid, text_clean) VALUES (?, ?)`,
		insertFrameStmt:    `INSERT OR IGNORE INTO frames (episode_id, timestamp, frame_key, thumb_key) VALUES (?, ?, ?, ?)`,
	} {
		preparedStmt, err := db.Prepare(stmt)
		if err != nil {
			db.Close() // nolint: errcheck
			log.Error().Err(err).Msg("Failed to prepare statement")
			return nil, err
		}

		preparedStatements[key] = preparedStmt
	}

	return &DatabaseBuilder{
		db:                 db,
		preparedStatements: preparedStatements,
		outputDatabasePath: dbPath,
		tmpDatabasePath:    tmpDbPath,
	}, nil
}

// AddRun records the generation run that produced the database.
func (b *DatabaseBuilder) AddRun(runID string, generatedAt time.Time) error {
	_, err := b.preparedStatements[insertRunStmt].Exec(runID, generatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert run")
	}
	return err
}

// AddEpisodeMetadata inserts an episode with its subtitles and frames in one
// transaction.
func (b *DatabaseBuilder) AddEpisodeMetadata(metadata EpisodeMetadata) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint: errcheck

	res, err := tx.Stmt(b.preparedStatements[insertEpisodeStmt]).Exec(
		metadata.Season, metadata.Episode, metadata.Code,
		metadata.VideoPath, metadata.SubtitlePath, metadata.SubtitleSource,
	)
	if err != nil {
		log.Error().Err(err).Str("episode", metadata.Code).Msg("Failed to insert episode")
		return err
	}

	episodeID, err := res.LastInsertId()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get episode ID")
		return err
	}

	insertSubtitle := tx.Stmt(b.preparedStatements[insertSubtitleStmt])
	insertFts := tx.Stmt(b.preparedStatements[insertFtsStmt])
	for _, s := range metadata.Subtitles {
		res, err := insertSubtitle.Exec(episodeID, s.Index, s.Start, s.End, s.Midpoint, s.Text, s.TextClean)
		if err != nil {
			log.Error().Err(err).Msg("Failed to insert subtitle")
			return err
		}
		subtitleID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := insertFts.Exec(subtitleID, s.TextClean); err != nil {
			log.Error().Err(err).Msg("Failed to index subtitle")
			return err
		}
	}

	insertFrame := tx.Stmt(b.preparedStatements[insertFrameStmt])
	for _, f := range metadata.Frames {
		if _, err := insertFrame.Exec(episodeID, f.Timestamp, f.FrameKey, f.ThumbKey); err != nil {
			log.Error().Err(err).Msg("Failed to insert frame")
			return err
		}
	}

	return tx.Commit()
}

// Build compacts the database and moves it to its final path.
func (b *DatabaseBuilder) Build() error {
	if _, err := b.db.Exec("VACUUM"); err != nil {
		log.Error().Err(err).Msg("Failed to compact the database")
		return err
	}

	if err := b.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database")
		return err
	}

	if err := os.Rename(b.tmpDatabasePath, b.outputDatabasePath); err != nil {
		log.Error().Err(err).Msg("Failed to move the temporary database")
		return err
	}

	return nil
}

// Abort discards the partially built database.
func (b *DatabaseBuilder) Abort() {
	_ = b.db.Close()
	_ = os.Remove(b.tmpDatabasePath)
}
