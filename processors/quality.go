package processor

import "math"

const (
	// MinQScale is ffmpeg's best JPEG quality setting.
	MinQScale = 1
	// MaxQScale is ffmpeg's worst JPEG quality setting.
	MaxQScale = 31

	DefaultQuality = 85
)

// ClampQuality limits quality to [1, 100].
func ClampQuality(quality int) int {
	return max(1, min(quality, 100))
}

// QualityToQScale maps a 1-100 quality, higher is better, onto ffmpeg's
// inverted 1-31 q:v scale.
func QualityToQScale(quality int) int {
	quality = ClampQuality(quality)
	return int(math.Round(MaxQScale - float64(quality)/100*(MaxQScale-MinQScale)))
}

// ThumbQScale returns the slightly lower quality setting used for thumbnails.
func ThumbQScale(frameQScale int) int {
	return min(frameQScale+2, MaxQScale)
}
