package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	Details   []ErrorDetail `json:"details,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func JSONSuccess(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func JSONSuccessCreated(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

func JSONMessage(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, MessageResponse{Message: message})
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	JSON(w, statusCode, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: RequestIDFrom(r),
	})
}
