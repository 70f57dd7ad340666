package core

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/gofeedback/internal/feedback"
	"github.com/jo-hoe/gofeedback/internal/lock"
)

type CoreService struct {
	store       *feedback.Store
	closeLocker func() error
}

// NewCoreService builds the append lock and the feedback store. onLogRead may be nil.
func NewCoreService(config *ServiceConfig, onLogRead func(feedback.LogContents)) (*CoreService, error) {
	locker, closeLocker, err := lock.New(config.AppendLock)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize append lock: %w", err)
	}

	store, err := feedback.NewStore(feedback.Options{
		UploadDir: config.UploadDir,
		LogFile:   config.LogFile,
		Locker:    locker,
		OnLogRead: onLogRead,
	})
	if err != nil {
		_ = closeLocker()
		return nil, fmt.Errorf("failed to initialize feedback store: %w", err)
	}

	lockType := config.AppendLock.Type
	if lockType == "" {
		lockType = lock.TypeLocal
	}
	if lockType == lock.TypeNone {
		slog.Warn("append lock disabled, concurrent submissions may overwrite each other")
	}
	slog.Info("feedback store initialized",
		"upload_dir", config.UploadDir,
		"log_file", config.LogFile,
		"append_lock", lockType)

	return &CoreService{
		store:       store,
		closeLocker: closeLocker,
	}, nil
}

func (service *CoreService) Store() *feedback.Store {
	return service.store
}

func (service *CoreService) Close() error {
	return service.closeLocker()
}
