package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/recurly"
	"app/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service and provider failures onto the API's error
// shape. Business-rule rejections and provider validation errors are the
// client's problem; everything else is a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	if errors.Is(err, recurly.ErrNotConfigured) {
		writeError(w, http.StatusInternalServerError, "Recurly API key not configured. Please set RECURLY_PRIVATE_KEY environment variable.")
		return
	}

	var uerr *service.UserError
	if errors.As(err, &uerr) {
		writeError(w, http.StatusBadRequest, uerr.Message)
		return
	}

	if rerr, ok := recurly.AsError(err); ok {
		message := rerr.Message
		if len(rerr.Params) > 0 {
			details := make([]string, 0, len(rerr.Params))
			for _, p := range rerr.Params {
				if p.Message != "" {
					details = append(details, p.Param+" "+p.Message)
				} else {
					details = append(details, p.Param)
				}
			}
			message += " Details: " + strings.Join(details, ", ")
		}
		writeError(w, http.StatusBadRequest, message)
		return
	}

	logger.Error().Err(err).Msg("Unhandled service error")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
