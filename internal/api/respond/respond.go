// Package respond writes the JSON bodies shared by handlers and middleware.
// Every error body has the shape {"message": "..."}.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dom/authroutes/internal/logging"
)

type MessageResponse struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(r.Context()).Warn("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, MessageResponse{Message: message})
}
