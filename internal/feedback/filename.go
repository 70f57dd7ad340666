package feedback

import (
	"path/filepath"
	"strings"
	"time"
)

const uploadTimestampLayout = "20060102_150405"

// uploadFilename prefixes the client file name with a second-granularity timestamp.
// Two uploads with the same name in the same second yield the same file name.
func uploadFilename(original string, now time.Time) string {
	base := filepath.Base(filepath.Clean("/" + original))
	if base == "/" || base == "." {
		base = ""
	}
	return now.Format(uploadTimestampLayout) + "_" + strings.ReplaceAll(base, " ", "_")
}
