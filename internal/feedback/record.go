package feedback

import "io"

const TimestampLayout = "2006-01-02 15:04:05"

// Record is one user correction of a model prediction.
type Record struct {
	Timestamp string  `json:"timestamp"`
	Predicted string  `json:"predicted"`
	Corrected string  `json:"corrected"`
	ImagePath *string `json:"image_path"` // nil when no image was attached
}

// Upload is an optional image attached to a correction.
type Upload struct {
	Filename string
	Content  io.Reader
}
