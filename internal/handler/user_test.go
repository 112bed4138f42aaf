package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/users-api/internal/apperror"
	"github.com/sakif/users-api/internal/handler"
	"github.com/sakif/users-api/internal/model"
	"github.com/sakif/users-api/internal/repository"
	"github.com/sakif/users-api/internal/repository/sqlite"
	"github.com/sakif/users-api/internal/service"
)

// =========================================================================
// HELPERS
// =========================================================================

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter(repo repository.UserRepository) http.Handler {
	r := chi.NewRouter()
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	handler.NewUserHandler(service.NewUserService(repo, discard), discard).Register(r)
	return r
}

// newTestRouter serves the handlers on top of a fresh in-memory SQLite store.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newRouter(db)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func userJSON(first, last, username, email string) string {
	return fmt.Sprintf(`{"first_name":%q,"last_name":%q,"username":%q,"email":%q}`, first, last, username, email)
}

// createUser posts a user and returns its id, found through GET /users.
func createUser(t *testing.T, h http.Handler, first, last, username, email string) int64 {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/users", userJSON(first, last, username, email))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	list := decode[handler.UsersResponse](t, do(t, h, http.MethodGet, "/users", ""))
	for _, u := range list.Users {
		if u.Username == username {
			return u.ID
		}
	}
	t.Fatalf("created user %q not listed", username)
	return 0
}

func assertMessage(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, message, decode[handler.MessageResponse](t, rr).Message)
}

// failingRepo simulates a database that cannot be reached.
type failingRepo struct{ err error }

func (f failingRepo) Insert(context.Context, *model.User) error           { return f.err }
func (f failingRepo) FindAll(context.Context) ([]model.User, error)        { return nil, f.err }
func (f failingRepo) FindByID(context.Context, int64) (*model.User, error) { return nil, f.err }
func (f failingRepo) Update(context.Context, *model.User) error           { return f.err }
func (f failingRepo) Delete(context.Context, int64) error                 { return f.err }

// =========================================================================
// CREATE
// =========================================================================

func TestCreateRoundTrip(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/users", userJSON("A", "B", "ab", "a@b.com"))
	assertMessage(t, rr, http.StatusCreated, "User created")

	id := createUser(t, h, "C", "D", "cd", "c@d.com")

	rr = do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[handler.UserResponse](t, rr)
	assert.Equal(t, model.User{ID: id, FirstName: "C", LastName: "D", Username: "cd", Email: "c@d.com"}, got.User)
}

func TestCreate_UserJSONHasEveryField(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")

	rr := do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", id), "")
	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))

	user := raw["user"]
	for _, key := range []string{"id", "first_name", "last_name", "username", "email"} {
		assert.Contains(t, user, key)
	}
	assert.Len(t, user, 5)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")

	rr := do(t, h, http.MethodPost, "/users", userJSON("X", "Y", "ab", "x@y.com"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	msg := decode[handler.MessageResponse](t, rr).Message
	assert.True(t, strings.HasPrefix(msg, "Error creating user "), msg)
	assert.Contains(t, msg, "UNIQUE")

	rr = do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.User{ID: id, FirstName: "A", LastName: "B", Username: "ab", Email: "a@b.com"},
		decode[handler.UserResponse](t, rr).User)
}

func TestCreate_DuplicateAnyUniqueField(t *testing.T) {
	for _, body := range []string{
		userJSON("A", "Y", "xy", "x@y.com"), // first_name
		userJSON("X", "B", "xy", "x@y.com"), // last_name
		userJSON("X", "Y", "xy", "a@b.com"), // email
	} {
		h := newTestRouter(t)
		createUser(t, h, "A", "B", "ab", "a@b.com")

		rr := do(t, h, http.MethodPost, "/users", body)
		assert.Equal(t, http.StatusInternalServerError, rr.Code, body)
	}
}

func TestCreate_BadBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing field", `{"first_name":"A","last_name":"B","username":"ab"}`, "Error creating user 'email'"},
		{"null field", `{"first_name":null,"last_name":"B","username":"ab","email":"a@b.com"}`, "Error creating user 'first_name'"},
		{"empty object", `{}`, "Error creating user 'first_name'"},
		{"malformed json", `{"first_name":`, "Error creating user unexpected EOF"},
		{"empty body", ``, "Error creating user EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t)
			rr := do(t, h, http.MethodPost, "/users", tt.body)
			assertMessage(t, rr, http.StatusInternalServerError, tt.message)

			list := decode[handler.UsersResponse](t, do(t, h, http.MethodGet, "/users", ""))
			assert.Empty(t, list.Users)
		})
	}
}

func TestCreate_WrongFieldType(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/users", `{"first_name":1,"last_name":"B","username":"ab","email":"a@b.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.HasPrefix(decode[handler.MessageResponse](t, rr).Message, "Error creating user "))
}

func TestCreate_ValueTooLong(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/users", userJSON("A", "B", strings.Repeat("u", 21), "a@b.com"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// =========================================================================
// LIST
// =========================================================================

func TestList_Empty(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"users":[]}`, rr.Body.String())
}

func TestList_Completeness(t *testing.T) {
	h := newTestRouter(t)

	ids := map[int64]string{}
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user%d", i)
		ids[createUser(t, h, name+"-f", name+"-l", name, name+"@example.com")] = name
	}

	rr := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[handler.UsersResponse](t, rr)

	require.Len(t, list.Users, len(ids))
	for _, u := range list.Users {
		assert.Equal(t, ids[u.ID], u.Username)
	}
}

// =========================================================================
// GET / PUT / DELETE BY ID
// =========================================================================

func TestNotFound(t *testing.T) {
	h := newTestRouter(t)
	body := userJSON("A", "B", "ab", "a@b.com")

	for _, tt := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, body},
		{http.MethodPut, ""},
		{http.MethodPut, `{"first_name":`},
		{http.MethodPut, `{}`},
		{http.MethodDelete, ""},
	} {
		t.Run(tt.method+" "+tt.body, func(t *testing.T) {
			rr := do(t, h, tt.method, "/users/42", tt.body)
			assertMessage(t, rr, http.StatusNotFound, "User not found")
		})
	}
}

func TestNotFound_IDOverflow(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/users/99999999999999999999999", "")
	assertMessage(t, rr, http.StatusNotFound, "User not found")
}

func TestNonIntegerIDIsUnrouted(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/users/abc", "")
	assertMessage(t, rr, http.StatusNotFound, "Not Found")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPatch, "/users/1", `{}`)
	assertMessage(t, rr, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func TestUpdateOverwrite(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")
	path := fmt.Sprintf("/users/%d", id)

	rr := do(t, h, http.MethodPut, path, userJSON("W", "X", "wx", "w@x.com"))
	assertMessage(t, rr, http.StatusOK, "User updated")

	rr = do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.User{ID: id, FirstName: "W", LastName: "X", Username: "wx", Email: "w@x.com"},
		decode[handler.UserResponse](t, rr).User)
}

func TestUpdate_SameValues(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")

	rr := do(t, h, http.MethodPut, fmt.Sprintf("/users/%d", id), userJSON("A", "B", "ab", "a@b.com"))
	assertMessage(t, rr, http.StatusOK, "User updated")
}

func TestUpdate_PartialBodyFails(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")
	path := fmt.Sprintf("/users/%d", id)

	rr := do(t, h, http.MethodPut, path, `{"first_name":"W"}`)
	assertMessage(t, rr, http.StatusInternalServerError, "Error while updating user 'last_name'")

	rr = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, "A", decode[handler.UserResponse](t, rr).User.FirstName)
}

func TestUpdate_MalformedBody(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")

	rr := do(t, h, http.MethodPut, fmt.Sprintf("/users/%d", id), `not json`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.HasPrefix(decode[handler.MessageResponse](t, rr).Message, "Error while updating user "))
}

func TestUpdate_Conflict(t *testing.T) {
	h := newTestRouter(t)
	createUser(t, h, "A", "B", "ab", "a@b.com")
	id := createUser(t, h, "C", "D", "cd", "c@d.com")

	rr := do(t, h, http.MethodPut, fmt.Sprintf("/users/%d", id), userJSON("C", "D", "ab", "c@d.com"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decode[handler.MessageResponse](t, rr).Message, "Error while updating user ")
}

func TestDeleteRemoves(t *testing.T) {
	h := newTestRouter(t)
	id := createUser(t, h, "A", "B", "ab", "a@b.com")
	path := fmt.Sprintf("/users/%d", id)

	assertMessage(t, do(t, h, http.MethodDelete, path, ""), http.StatusOK, "User deleted")
	assertMessage(t, do(t, h, http.MethodGet, path, ""), http.StatusNotFound, "User not found")
	assertMessage(t, do(t, h, http.MethodDelete, path, ""), http.StatusNotFound, "User not found")
	assertMessage(t, do(t, h, http.MethodPut, path, userJSON("A", "B", "ab", "a@b.com")), http.StatusNotFound, "User not found")
}

// =========================================================================
// CONCURRENCY
// =========================================================================

func TestCreate_ParallelRequests(t *testing.T) {
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := newRouter(db)

	const clients = 30
	codes := make([]int, clients)
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("user%d", i)
			req := httptest.NewRequest(http.MethodPost, "/users",
				strings.NewReader(userJSON(name+"-first", name+"-last", name, name+"@example.com")))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			codes[i] = rr.Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}
	list := decode[handler.UsersResponse](t, do(t, h, http.MethodGet, "/users", ""))
	assert.Len(t, list.Users, clients)
}

// =========================================================================
// STORAGE FAILURES
// =========================================================================

func TestStorageUnavailable(t *testing.T) {
	h := newRouter(failingRepo{err: apperror.StorageUnavailable(errors.New("connection refused"))})
	body := userJSON("A", "B", "ab", "a@b.com")

	tests := []struct {
		method, path, body, message string
	}{
		{http.MethodPost, "/users", body, "Error creating user connection refused"},
		{http.MethodGet, "/users", "", "Error while getting users connection refused"},
		{http.MethodGet, "/users/1", "", "Error while getting user connection refused"},
		{http.MethodPut, "/users/1", body, "Error while updating user connection refused"},
		{http.MethodDelete, "/users/1", "", "Error while deleting user connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assertMessage(t, rr, http.StatusInternalServerError, tt.message)
		})
	}
}
