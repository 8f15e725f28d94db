package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/job"
	"github.com/jaki95/ambient-mixer/internal/service"
	"github.com/jaki95/ambient-mixer/internal/storage"
)

var domainStatus = map[domain.ErrorCode]int{
	domain.CodeInvalidVolume:  http.StatusBadRequest,
	domain.CodeInvalidTrackID: http.StatusBadRequest,
	domain.CodeTrackNotFound:  http.StatusNotFound,
	domain.CodeDuplicateTrack: http.StatusConflict,
	domain.CodeLimitExceeded:  http.StatusConflict,
	domain.CodeMixEmpty:       http.StatusUnprocessableEntity,
}

// statusFor maps an error from the layers below to an HTTP status.
func statusFor(err error) int {
	if code, ok := domain.CodeOf(err); ok {
		if status, known := domainStatus[code]; known {
			return status
		}
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, storage.ErrMixNotFound), errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, job.ErrInvalidRequest),
		errors.Is(err, job.ErrInvalidState),
		errors.Is(err, service.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrCorruptedMix), errors.Is(err, service.ErrTranscoderMissing):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if code, ok := domain.CodeOf(err); ok {
		resp.Code = string(code)
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, resp)
}

func mixResponse(m *domain.Mix) MixResponse {
	return MixResponse{
		MixDTO: m.ToDTO(),
		Gains:  m.TransientGains(),
	}
}
