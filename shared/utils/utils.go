package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
)

// RespondWithJSON sends a JSON response with the given status code
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// RespondWithError sends an error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	errorResponse := map[string]interface{}{
		"error": message,
		"code":  http.StatusText(statusCode),
	}
	RespondWithJSON(w, statusCode, errorResponse)
}

// RespondWithAPIError maps a service error onto the wire. Unknown error
// values are masked as a generic 500 so internal details never leak.
func RespondWithAPIError(w http.ResponseWriter, err error) {
	apiErr := apierrors.GetAPIError(err)
	if apiErr == nil {
		slog.Error("Unclassified error reached the handler", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if apiErr.InternalErr != nil {
		slog.Error("Request failed", "type", apiErr.Type, "code", apiErr.Code, "cause", apiErr.InternalErr)
	}
	RespondWithJSON(w, apiErr.HTTPStatus, map[string]interface{}{
		"error": apiErr.Message,
		"type":  apiErr.Type,
		"code":  apiErr.Code,
	})
}

// PanicRecoveryMiddleware recovers from panics in HTTP handlers
func PanicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic recovered in HTTP handler",
					"panic", rec,
					"path", r.URL.Path,
					"method", r.Method,
					"stack", string(debug.Stack()))
				RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetEnvOrDefault returns the environment variable value or a default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
