package api

import (
	"encoding/json"
	"net/http"

	"MaintBackOffice/api/constants"
	"MaintBackOffice/internal/upload"

	"go.uber.org/zap"
)

// RespondWithJSON writes payload as a single JSON document.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("response not delivered", zap.Error(err))
	}
}

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	zap.L().Warn("request rejected", zap.Int("status", status), zap.String("error", errMsg))
	RespondWithJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithUploadError answers a job-level upload failure with its kind,
// message and details.
func RespondWithUploadError(w http.ResponseWriter, ue *upload.Error) {
	fields := []zap.Field{
		zap.String("kind", string(ue.Kind)),
		zap.Int("status", ue.Status),
		zap.String("message", ue.Message),
	}
	if ue.Status >= http.StatusInternalServerError {
		zap.L().Error("upload failed", append(fields, zap.Error(ue.Err))...)
	} else {
		zap.L().Info("upload rejected", fields...)
	}

	body := map[string]interface{}{
		"success": false,
		"error":   string(ue.Kind),
		"message": ue.Message,
	}
	if len(ue.Details) > 0 {
		body["details"] = ue.Details
	}
	RespondWithJSON(w, ue.Status, body)
}

// SetStreamHeaders prepares w for a newline-delimited JSON progress stream.
func SetStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	h.Set(constants.HeaderCacheControl, "no-cache")
	h.Set(constants.HeaderContentTypeOptions, "nosniff")
}
