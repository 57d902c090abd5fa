package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adminpanel/apiserver/internal/db/dbtest"
	"github.com/adminpanel/apiserver/internal/handlers"
	"github.com/adminpanel/apiserver/internal/services"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) apiClient {
	t.Helper()
	conn := dbtest.Open(t)
	hasher := services.NewPasswordHasher(bcrypt.MinCost, 2)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, services.NewUserService(store.NewUserRepository(conn), hasher))
	})
	router.Route("/api/roles", func(r chi.Router) {
		handlers.RoleRouter(r, services.NewRoleService(store.NewRoleRepository(conn)))
	})
	router.Route("/api/logs", func(r chi.Router) {
		handlers.LogRouter(r, services.NewAuditService(store.NewLogRepository(conn), nil, zerolog.Nop()))
	})
	return apiClient{t: t, handler: router}
}

func (c apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var payload *bytes.Reader
	switch b := body.(type) {
	case nil:
		payload = bytes.NewReader(nil)
	case string:
		payload = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		payload = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&out), rec.Body.String())
	return out
}

type idBody struct {
	ID int64 `json:"id"`
}

type changesBody struct {
	Changes      int64 `json:"changes"`
	UsersRenamed int64 `json:"usersRenamed"`
}

type errorBody struct {
	Error string `json:"error"`
}
