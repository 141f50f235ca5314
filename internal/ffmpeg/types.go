package ffmpeg

// MediaInfo contains the probed properties of a media file.
// Duration is in seconds.
type MediaInfo struct {
	FilePath   string
	Duration   float64
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	HasVideo   bool
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Seconds    float64
	Speed      string
	Percentage float64
	Done       bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args []string

	// Duration of the expected output in seconds, used for Percentage
	Duration float64

	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per progress block as the operation executes.
type ProgressFunc func(*Progress)
