package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/jo-hoe/gofeedback/internal/feedback"
	"github.com/labstack/echo/v4"
)

const (
	SavedMessage = "Feedback has been saved."

	pingPath = "/ping"
	rootPath = "/"
)

type APIService struct {
	store   feedback.Service
	metrics *Metrics
}

type feedbackForm struct {
	Predicted *string `validate:"required"`
	Corrected *string `validate:"required"`
}

type submitResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    feedback.Record `json:"data"`
}

type listResponse struct {
	Count int               `json:"count"`
	Logs  []json.RawMessage `json:"logs"`
}

func NewAPIService(store feedback.Service, metrics *Metrics) *APIService {
	return &APIService{
		store:   store,
		metrics: metrics,
	}
}

// IsProbePath reports whether the path is a liveness probe that should not be request-logged.
func IsProbePath(path string) bool {
	return path == pingPath || path == rootPath
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe routes
	e.GET(rootPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Feedback Server Running!"})
	})
	e.GET(pingPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "feedback-alive"})
	})

	e.POST("/feedback", s.submitFeedbackHandler)
	// Debug listing, unauthenticated
	e.GET("/feedback_logs", s.listFeedbackHandler)
	e.GET("/metrics", s.metrics.Handler())
}

func (s *APIService) submitFeedbackHandler(ctx echo.Context) error {
	if _, err := ctx.FormParams(); err != nil {
		s.metrics.observeSubmission(resultInvalid)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to parse form")
	}
	postForm := ctx.Request().PostForm

	form := feedbackForm{
		Predicted: formValue(postForm, "predicted"),
		Corrected: formValue(postForm, "corrected"),
	}
	if err := ctx.Validate(&form); err != nil {
		slog.Warn("submitFeedbackHandler: invalid form", "status", http.StatusBadRequest, "error", err)
		s.metrics.observeSubmission(resultInvalid)
		return err
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		slog.Error("submitFeedbackHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		s.metrics.observeSubmission(resultInvalid)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to get uploaded file")
	}

	var upload *feedback.Upload
	if fileHeader != nil {
		src, err := fileHeader.Open()
		if err != nil {
			slog.Error("submitFeedbackHandler: failed to open uploaded file",
				"status", http.StatusInternalServerError, "error", err, "filename", fileHeader.Filename)
			s.metrics.observeSubmission(resultError)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
		}
		defer closeUpload(src, fileHeader.Filename)
		upload = &feedback.Upload{Filename: fileHeader.Filename, Content: src}
	}

	start := time.Now()
	record, err := s.store.Append(ctx.Request().Context(), *form.Predicted, *form.Corrected, upload)
	s.metrics.appendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("submitFeedbackHandler: failed to store feedback",
			"status", http.StatusInternalServerError, "error", err)
		s.metrics.observeSubmission(resultError)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store feedback")
	}

	s.metrics.observeSubmission(resultSuccess)
	if record.ImagePath != nil {
		s.metrics.uploads.Inc()
	}

	return ctx.JSON(http.StatusOK, submitResponse{
		Status:  "success",
		Message: SavedMessage,
		Data:    record,
	})
}

func (s *APIService) listFeedbackHandler(ctx echo.Context) error {
	entries := s.store.ListAll()
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return ctx.JSON(http.StatusOK, listResponse{
		Count: len(entries),
		Logs:  entries,
	})
}

// formValue returns nil when the field is absent; an empty value is still present.
func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

func closeUpload(src multipart.File, filename string) {
	if err := src.Close(); err != nil {
		slog.Error("submitFeedbackHandler: failed to close uploaded file reader", "error", err, "filename", filename)
	}
}
