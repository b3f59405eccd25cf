package metadata

type EpisodeMetadata struct {
	// Season is the season number of the episode.
	Season int `json:"season"`
	// Episode is the episode number of the episode.
	Episode        int                `json:"episode"`
	Code           string             `json:"code"`
	VideoPath      string             `json:"video_path"`
	SubtitlePath   string             `json:"subtitle_path"`
	SubtitleSource string             `json:"subtitle_source"`
	Subtitles      []SubtitleMetadata `json:"subtitles"`
	Frames         []FrameMetadata    `json:"frames"`
}

type SubtitleMetadata struct {
	Index     int    `json:"index"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Midpoint  uint64 `json:"midpoint"`
	Text      string `json:"text"`
	TextClean string `json:"text_clean"`
}

type FrameMetadata struct {
	Timestamp uint64 `json:"timestamp"`
	FrameKey  string `json:"frame"`
	ThumbKey  string `json:"thumb"`
}
