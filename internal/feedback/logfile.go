package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LogState tells whether the log file was read as-is or replaced by an empty log.
type LogState int

const (
	// LogIntact means the file parsed as a JSON array.
	LogIntact LogState = iota
	// LogRecovered means the file was missing, unreadable or not an array and is treated as empty.
	LogRecovered
)

func (s LogState) String() string {
	switch s {
	case LogIntact:
		return "intact"
	case LogRecovered:
		return "recovered"
	default:
		return fmt.Sprintf("LogState(%d)", int(s))
	}
}

// LogContents holds the log elements exactly as stored. Elements are not
// required to be records; they are kept and rewritten unchanged.
type LogContents struct {
	Entries []json.RawMessage
	State   LogState
	Cause   error // set when State is LogRecovered
}

func recovered(cause error) LogContents {
	return LogContents{Entries: []json.RawMessage{}, State: LogRecovered, Cause: cause}
}

func readLogFile(path string) LogContents {
	data, err := os.ReadFile(path)
	if err != nil {
		return recovered(err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return recovered(fmt.Errorf("failed to parse %s: %w", path, err))
	}
	// "null" unmarshals into a nil slice without error
	if entries == nil {
		return recovered(errors.New("log is not a JSON array"))
	}
	return LogContents{Entries: entries, State: LogIntact}
}

func encodeEntry(record Record) (json.RawMessage, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(record); err != nil {
		return nil, fmt.Errorf("failed to encode feedback record: %w", err)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// writeLogFile replaces the whole log through a temp file and rename.
func writeLogFile(path string, entries []json.RawMessage) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode feedback log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp log file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set log file mode: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp log file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace log file %s: %w", path, err)
	}
	return nil
}
