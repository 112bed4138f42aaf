package handler

// Every response body is one of the structs below, encoded by writeJSON.
// Failures all use MessageResponse: the API has a single error shape,
// {"message": "..."}, for 404 and 500 alike.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/users-api/internal/apperror"
	"github.com/sakif/users-api/internal/model"
)

const msgUserNotFound = "User not found"

// MessageResponse is the body of every mutation result and every failure.
type MessageResponse struct {
	Message string `json:"message"`
}

// UsersResponse is the body of GET /users.
type UsersResponse struct {
	Users []model.User `json:"users"`
}

// UserResponse is the body of GET /users/{id}.
type UserResponse struct {
	User model.User `json:"user"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps a failed operation to its HTTP response.
//
// apperror.ErrNotFound is the only kind with its own status (404). Every
// other failure (constraint violations, an unreachable database, bad input)
// is a 500 whose message is prefix followed by the error's description.
func writeError(w http.ResponseWriter, prefix string, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
		return
	}
	writeMessage(w, http.StatusInternalServerError, prefix+" "+err.Error())
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// MethodNotAllowed answers requests whose path matches but method does not.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
