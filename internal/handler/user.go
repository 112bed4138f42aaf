// Package handler contains the HTTP handlers of the users API.
//
// Handlers only translate HTTP: they read the path id and JSON body, call
// the service once and turn the outcome into a status code and JSON body.
// They never touch the database directly.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/users-api/internal/model"
	"github.com/sakif/users-api/internal/service"
)

// UserHandler serves the five /users endpoints.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Register mounts the handlers on r.
//
// The id pattern only matches digits, so /users/abc falls through to the
// router's 404 instead of reaching a handler.
func (h *UserHandler) Register(r chi.Router) {
	r.Post("/users", h.HandleCreate)
	r.Get("/users", h.HandleList)
	r.Get("/users/{id:[0-9]+}", h.HandleGet)
	r.Put("/users/{id:[0-9]+}", h.HandleUpdate)
	r.Delete("/users/{id:[0-9]+}", h.HandleDelete)
}

// HandleCreate stores a new user.
//
// HTTP: POST /users
// REQUEST BODY: {"first_name": "...", "last_name": "...", "username": "...", "email": "..."}
// RESPONSE: 201 {"message": "User created"}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const prefix = "Error creating user"

	in, err := decodeUserInput(r)
	if err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, prefix, err)
		return
	}

	if _, err := h.svc.Create(r.Context(), in); err != nil {
		writeError(w, prefix, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User created")
}

// HandleList returns every user.
//
// HTTP: GET /users
// RESPONSE: 200 {"users": [{"id": 1, "first_name": "...", ...}, ...]}
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "Error while getting users", err)
		return
	}

	writeJSON(w, http.StatusOK, UsersResponse{Users: users})
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}
// RESPONSE: 200 {"user": {...}} or 404 {"message": "User not found"}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "Error while getting user", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: *user})
}

// HandleUpdate overwrites all four fields of a user.
//
// HTTP: PUT /users/{id}
// REQUEST BODY: same as POST /users
// RESPONSE: 200 {"message": "User updated"} or 404 {"message": "User not found"}
//
// A missing user wins over a bad body: for malformed JSON the id is looked up
// before the decode error is reported, and UserService.Update checks for
// absent fields only after it has found the user.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const prefix = "Error while updating user"

	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	in, decodeErr := decodeUserInput(r)
	if decodeErr != nil {
		h.logger.Warn("invalid user JSON", slog.Int64("id", id), slog.String("error", decodeErr.Error()))
		if _, err := h.svc.Get(r.Context(), id); err != nil {
			writeError(w, prefix, err)
			return
		}
		writeError(w, prefix, decodeErr)
		return
	}

	if _, err := h.svc.Update(r.Context(), id, in); err != nil {
		writeError(w, prefix, err)
		return
	}

	writeMessage(w, http.StatusOK, "User updated")
}

// HandleDelete removes a user.
//
// HTTP: DELETE /users/{id}
// RESPONSE: 200 {"message": "User deleted"} or 404 {"message": "User not found"}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "Error while deleting user", err)
		return
	}

	writeMessage(w, http.StatusOK, "User deleted")
}

// pathID parses the {id} URL parameter. Digits that overflow int64 cannot
// name a stored user, so they report false.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeUserInput reads the JSON body. Only malformed JSON or a value of the
// wrong type fails here; absent keys are reported by the service.
func decodeUserInput(r *http.Request) (model.UserInput, error) {
	var in model.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return model.UserInput{}, err
	}
	return in, nil
}
