package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
)

// handleError writes err to the client. Errors that are not APIErrors never
// reach the client in detail.
func handleError(w http.ResponseWriter, r *http.Request, logger *logger.Logger, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("HTTP handler: request failed",
				"path", r.URL.Path,
				"error", apiErr.Error())
		}
		response.Error(w, apiErr)
		return
	}

	if errors.Is(err, model.ErrNotFound) {
		response.Error(w, apierrors.NewErrUserNotFound())
		return
	}

	logger.Error("HTTP handler: unexpected error",
		"path", r.URL.Path,
		"error", err.Error())
	response.Error(w, apierrors.NewErrInternalServerError(err))
}
