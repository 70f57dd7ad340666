package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jo-hoe/gofeedback/internal/lock"
)

// Service is the persistence contract used by the HTTP layer.
type Service interface {
	// Append stores the upload (if any) and adds one record to the log.
	Append(ctx context.Context, predicted, corrected string, upload *Upload) (Record, error)
	// ListAll returns every log element as stored, oldest first.
	ListAll() []json.RawMessage
}

type Options struct {
	UploadDir string
	LogFile   string
	// Locker guards the read-modify-write of the log file. Defaults to an in-process mutex.
	Locker lock.Locker
	// Clock defaults to time.Now.
	Clock func() time.Time
	// OnLogRead, if set, observes every read of the log file, including the read inside Append.
	OnLogRead func(contents LogContents)
}

type Store struct {
	uploadDir string
	logFile   string
	locker    lock.Locker
	now       func() time.Time
	onLogRead func(contents LogContents)
}

func NewStore(options Options) (*Store, error) {
	if options.UploadDir == "" {
		return nil, errors.New("upload directory must not be empty")
	}
	if options.LogFile == "" {
		return nil, errors.New("log file must not be empty")
	}
	if options.Locker == nil {
		options.Locker = lock.NewMutexLocker()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	if err := os.MkdirAll(options.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", options.UploadDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(options.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", options.LogFile, err)
	}

	if _, err := os.Stat(options.LogFile); errors.Is(err, os.ErrNotExist) {
		slog.Info("creating empty feedback log", "path", options.LogFile)
		if err := writeLogFile(options.LogFile, []json.RawMessage{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat log file %s: %w", options.LogFile, err)
	}

	return &Store{
		uploadDir: options.UploadDir,
		logFile:   options.LogFile,
		locker:    options.Locker,
		now:       options.Clock,
		onLogRead: options.OnLogRead,
	}, nil
}

func (s *Store) Append(ctx context.Context, predicted, corrected string, upload *Upload) (Record, error) {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to enter append critical section: %w", err)
	}
	defer unlock()

	var imagePath *string
	if upload != nil {
		path, err := s.saveUpload(upload)
		if err != nil {
			return Record{}, err
		}
		imagePath = &path
	}

	record := Record{
		Timestamp: s.now().Format(TimestampLayout),
		Predicted: predicted,
		Corrected: corrected,
		ImagePath: imagePath,
	}

	entry, err := encodeEntry(record)
	if err != nil {
		return Record{}, err
	}

	contents := s.ReadLog()
	entries := append(contents.Entries, entry)
	if err := writeLogFile(s.logFile, entries); err != nil {
		if imagePath != nil {
			slog.Warn("uploaded image has no log record", "image_path", *imagePath)
		}
		return Record{}, err
	}

	slog.Info("feedback stored",
		"predicted", predicted,
		"corrected", corrected,
		"has_image", imagePath != nil,
		"log_size", len(entries))

	return record, nil
}

func (s *Store) ReadLog() LogContents {
	contents := readLogFile(s.logFile)
	if contents.State == LogRecovered {
		slog.Warn("feedback log unreadable, treating as empty", "path", s.logFile, "error", contents.Cause)
	}
	if s.onLogRead != nil {
		s.onLogRead(contents)
	}
	return contents
}

func (s *Store) ListAll() []json.RawMessage {
	return s.ReadLog().Entries
}

func (s *Store) saveUpload(upload *Upload) (string, error) {
	path := filepath.Join(s.uploadDir, uploadFilename(upload.Filename, s.now()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file %s: %w", path, err)
	}

	var written int64
	if upload.Content != nil {
		written, err = io.Copy(file, upload.Content)
		if err != nil {
			_ = file.Close()
			return "", fmt.Errorf("failed to write upload file %s: %w", path, err)
		}
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload file %s: %w", path, err)
	}

	slog.Debug("upload stored", "path", path, "size_bytes", written)
	return path, nil
}
