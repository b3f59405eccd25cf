package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/metadata"
	"github.com/jaym/anytron/objstore"
	processor "github.com/jaym/anytron/processors"
	"github.com/jaym/anytron/subtitle"
)

const (
	defaultFramesPage = 25
	maxFramesPage     = 200
)

type SearchOptions struct {
	// Prefix makes every query word also match as a word prefix.
	Prefix     bool `mapstructure:"fuzzy"`
	MaxResults int  `mapstructure:"max_results"`
}

type ApiHandler struct {
	db            *metadata.Database
	store         *objstore.LocalFS
	frames        *processor.FrameExtractor
	gifs          *processor.GifMaker
	gifOptions    processor.GifOptions
	searchOptions SearchOptions
}

// NewApiHandler serves the generated output tree from store together with
// the JSON search, frame listing, on-demand frame and GIF endpoints.
func NewApiHandler(db *metadata.Database, store *objstore.LocalFS, frames *processor.FrameExtractor, gifs *processor.GifMaker, gifOptions processor.GifOptions, searchOptions SearchOptions) http.Handler {
	mux := http.NewServeMux()

	apiHandler := &ApiHandler{
		db:            db,
		store:         store,
		frames:        frames,
		gifs:          gifs,
		gifOptions:    gifOptions,
		searchOptions: searchOptions,
	}

	mux.HandleFunc("GET /api/search", apiHandler.searchHandler)
	mux.HandleFunc("GET /api/frames/{episode}/{timestamp}", apiHandler.framesHandler)
	mux.HandleFunc("GET /api/frame/{episode}/{timestamp}", apiHandler.frameHandler)
	mux.HandleFunc("GET /api/gif/{episode}/{start}/{end}", apiHandler.gifHandler)
	mux.HandleFunc("GET /", apiHandler.staticHandler)

	return allowCORS(mux)
}

func allowCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func (h *ApiHandler) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := h.searchOptions.MaxResults
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if limit <= 0 || l < limit {
			limit = l
		}
	}

	results, err := h.db.Search(r.Context(), query, h.searchOptions.Prefix, limit)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("search failed")
		http.Error(w, "Failed to search", http.StatusInternalServerError)
		return
	}
	if len(results) == 0 {
		results = []metadata.SearchResult{}
	}
	writeJSON(w, results)
}

type FrameItem struct {
	Timestamp uint64 `json:"timestamp"`
	Frame     string `json:"frame"`
	Thumb     string `json:"thumb"`
}

func (h *ApiHandler) framesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEpisode(w, r.PathValue("episode"))
	if !ok {
		return
	}
	timestamp, ok := parseTimestamp(w, r.PathValue("timestamp"), "Invalid timestamp")
	if !ok {
		return
	}

	count := defaultFramesPage
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		c, err := strconv.Atoi(countStr)
		if err != nil || c <= 0 {
			http.Error(w, "Invalid count", http.StatusBadRequest)
			return
		}
		count = min(c, maxFramesPage)
	}

	var reverse bool
	if r.URL.Query().Has("reverse") {
		var err error
		reverse, err = strconv.ParseBool(r.URL.Query().Get("reverse"))
		if err != nil {
			http.Error(w, "Invalid reverse", http.StatusBadRequest)
			return
		}
	}

	frames, err := h.db.ListFrames(r.Context(), id.Season, id.Episode, timestamp.Millis(), count, reverse)
	if err != nil {
		http.Error(w, "Failed to list frames", http.StatusInternalServerError)
		return
	}

	items := make([]FrameItem, 0, len(frames))
	for _, frame := range frames {
		items = append(items, FrameItem{
			Timestamp: frame.Timestamp,
			Frame:     frame.FrameKey,
			Thumb:     frame.ThumbKey,
		})
	}
	writeJSON(w, items)
}

// frameHandler serves a frame at any timestamp. Pre-extracted frames are
// served from the store; other timestamps are decoded on demand.
func (h *ApiHandler) frameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEpisode(w, r.PathValue("episode"))
	if !ok {
		return
	}
	timestamp, ok := parseTimestamp(w, r.PathValue("timestamp"), "Invalid timestamp")
	if !ok {
		return
	}

	width := 0
	if widthStr := r.URL.Query().Get("width"); widthStr != "" {
		var err error
		width, err = strconv.Atoi(widthStr)
		if err != nil || width <= 0 {
			http.Error(w, "Invalid width", http.StatusBadRequest)
			return
		}
	}

	if width == 0 {
		key := objstore.FrameKey(id.String(), timestamp.Millis())
		if h.store.Exists(key) {
			h.serveObject(w, r, key)
			return
		}
	}

	episode, ok := h.lookupEpisode(w, r, id)
	if !ok {
		return
	}

	outputDir, err := os.MkdirTemp("", "anytron-frame")
	if err != nil {
		http.Error(w, "Failed to create temp dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(outputDir)

	outputFile := filepath.Join(outputDir, "frame.jpg")
	if err := h.frames.ExtractSingleFrame(r.Context(), episode.VideoPath, timestamp, outputFile, width); err != nil {
		log.Error().Err(err).Str("episode", id.String()).Msg("failed to extract frame")
		http.Error(w, "Failed to extract frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	serveFile(w, outputFile)
}

func (h *ApiHandler) gifHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEpisode(w, r.PathValue("episode"))
	if !ok {
		return
	}
	start, ok := parseTimestamp(w, r.PathValue("start"), "Invalid start")
	if !ok {
		return
	}
	end, ok := parseTimestamp(w, r.PathValue("end"), "Invalid end")
	if !ok {
		return
	}

	if end <= start || end-start > processor.MaxGifDuration {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return
	}

	caption := r.URL.Query().Get("text")
	if b64Lines := r.URL.Query().Get("b64lines"); b64Lines != "" {
		captionBytes, err := base64.StdEncoding.DecodeString(b64Lines)
		if err != nil {
			http.Error(w, "Invalid caption", http.StatusBadRequest)
			return
		}
		caption = string(captionBytes)
	}

	episode, ok := h.lookupEpisode(w, r, id)
	if !ok {
		return
	}

	outputDir, err := os.MkdirTemp("", "anytron-gif")
	if err != nil {
		http.Error(w, "Failed to create temp dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(outputDir)

	outputFile := filepath.Join(outputDir, "output.gif")
	opts := h.gifOptions
	opts.Caption = caption

	if err := h.gifs.Make(r.Context(), episode.VideoPath, outputFile, start, end, opts); err != nil {
		log.Error().Err(err).Str("episode", id.String()).Msg("failed to create gif")
		http.Error(w, "Failed to create gif", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	// Cache the gif for 1 day
	w.Header().Set("Cache-Control", "public, max-age=86400")
	serveFile(w, outputFile)
}

func (h *ApiHandler) staticHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += "index.html"
	}
	key, err := objstore.CleanKey(key)
	if err != nil || key == objstore.LockKey || strings.HasSuffix(key, ".db") {
		http.NotFound(w, r)
		return
	}
	if !h.store.Exists(key) {
		http.NotFound(w, r)
		return
	}
	h.serveObject(w, r, key)
}

func (h *ApiHandler) serveObject(w http.ResponseWriter, r *http.Request, key string) {
	obj, err := h.store.Open(key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", ContentType(key))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, obj) // nolint: errcheck
}

func (h *ApiHandler) lookupEpisode(w http.ResponseWriter, r *http.Request, id discovery.EpisodeID) (*metadata.EpisodeMetadata, bool) {
	episode, err := h.db.GetEpisode(r.Context(), id.Season, id.Episode)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Episode not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "Failed to look up episode", http.StatusInternalServerError)
		return nil, false
	}
	return episode, true
}

// ContentType guesses the content type of a key from its extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func serveFile(w http.ResponseWriter, name string) {
	f, err := os.Open(name)
	if err != nil {
		http.Error(w, "Failed to read output", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f) // nolint: errcheck
}

func parseEpisode(w http.ResponseWriter, value string) (discovery.EpisodeID, bool) {
	id, err := discovery.ParseEpisodeID(value)
	if err != nil {
		http.Error(w, "Invalid episode", http.StatusBadRequest)
		return discovery.EpisodeID{}, false
	}
	return id, true
}

// parseTimestamp accepts milliseconds, optionally with a file extension.
func parseTimestamp(w http.ResponseWriter, value string, message string) (subtitle.Timestamp, bool) {
	value, _, _ = strings.Cut(value, ".")
	ms, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		http.Error(w, message, http.StatusBadRequest)
		return 0, false
	}
	return subtitle.Timestamp(ms), true
}
