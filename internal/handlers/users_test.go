package handlers_test

import (
	"net/http"
	"testing"

	"github.com/adminpanel/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_CreateListUpdateDelete(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodPost, "/api/users", map[string]string{"username": " bob ", "password": "pw1", "role": "Editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[idBody](t, rec).ID
	assert.NotZero(t, id)

	rec = api.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]types.User](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, "Editor", users[0].Role)
	assert.NotEmpty(t, users[0].PasswordHash, "hash is part of the list payload")
	assert.NotEqual(t, "pw1", users[0].PasswordHash)

	rec = api.do(http.MethodPut, "/api/users/"+itoa(id), map[string]string{"username": "bob", "password": "", "role": "Writer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[changesBody](t, rec).Changes)

	rec = api.do(http.MethodPost, "/api/users/login", map[string]string{"username": "bob", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code, "blank password keeps the old one")
	assert.Equal(t, types.Identity{ID: id, Username: "bob", Role: "Writer"}, decode[types.Identity](t, rec))

	rec = api.do(http.MethodDelete, "/api/users/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[changesBody](t, rec).Changes)

	rec = api.do(http.MethodDelete, "/api/users/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[changesBody](t, rec).Changes)
}

func TestUsers_DuplicateIsBadRequest(t *testing.T) {
	api := newAPI(t)
	body := map[string]string{"username": "bob", "password": "pw1", "role": "Editor"}

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/users", body).Code)

	rec := api.do(http.MethodPost, "/api/users", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "already exists")

	users := decode[[]types.User](t, api.do(http.MethodGet, "/api/users", nil))
	assert.Len(t, users, 1)
}

func TestUsers_Validation(t *testing.T) {
	api := newAPI(t)

	cases := []struct {
		name    string
		method  string
		path    string
		body    any
		message string
	}{
		{"missing password", http.MethodPost, "/api/users", map[string]string{"username": "bob"}, "password is required"},
		{"missing username", http.MethodPost, "/api/users", map[string]string{"password": "pw"}, "username is required"},
		{"blank username", http.MethodPost, "/api/users", map[string]string{"username": "  ", "password": "pw"}, "username is required"},
		{"malformed body", http.MethodPost, "/api/users", "{not json", "invalid request body"},
		{"bad id", http.MethodPut, "/api/users/abc", map[string]string{"username": "bob"}, "invalid user id"},
		{"update missing username", http.MethodPut, "/api/users/1", map[string]string{}, "username is required"},
		{"login missing fields", http.MethodPost, "/api/users/login", map[string]string{}, "username is required; password is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decode[errorBody](t, rec).Error)
		})
	}
}

func TestUsers_LoginFailuresLookTheSame(t *testing.T) {
	api := newAPI(t)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/users", map[string]string{"username": "bob", "password": "pw1", "role": "Editor"}).Code)

	unknown := api.do(http.MethodPost, "/api/users/login", map[string]string{"username": "alice", "password": "pw1"})
	wrong := api.do(http.MethodPost, "/api/users/login", map[string]string{"username": "bob", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, "Invalid credentials", decode[errorBody](t, wrong).Error)
}
