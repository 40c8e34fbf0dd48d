package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

func testToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func authServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			resp := api.AuthResponse{
				Token: token,
				User:  model.User{Name: "Ana Demo", Email: "ana@curalis.dev", Role: model.RolePatient},
			}
			data, _ := json.Marshal(resp)
			_ = json.NewEncoder(w).Encode(api.Envelope{Success: true, Data: data})
		case "/auth/logout":
			_ = json.NewEncoder(w).Encode(api.Envelope{Success: true})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.Envelope{Success: false, Error: "not_found"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginPersistsSessionAcrossStores(t *testing.T) {
	dir := t.TempDir()
	srv := authServer(t, testToken(t, time.Hour))
	client := api.NewClient(srv.URL)

	store, err := NewStore(dir, client)
	require.NoError(t, err)
	assert.Empty(t, store.Token())
	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	user, err := store.Login(context.Background(), "ana@curalis.dev", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ana Demo", user.Name)
	assert.NotEmpty(t, store.Token())

	// A fresh store over the same dir picks the session back up.
	store2, err := NewStore(dir, client)
	require.NoError(t, err)
	cur, err := store2.Current()
	require.NoError(t, err)
	assert.Equal(t, "ana@curalis.dev", cur.Email)
	assert.Equal(t, store.Token(), store2.Token())
}

func TestExpiredTokenReadsAsLoggedOut(t *testing.T) {
	dir := t.TempDir()
	srv := authServer(t, testToken(t, -time.Hour))
	client := api.NewClient(srv.URL)

	store, err := NewStore(dir, client)
	require.NoError(t, err)
	_, err = store.Login(context.Background(), "ana@curalis.dev", "pw")
	require.NoError(t, err)

	assert.Empty(t, store.Token())
	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestOpaqueTokenIsLeftToServer(t *testing.T) {
	dir := t.TempDir()
	srv := authServer(t, "opaque-session-token")
	client := api.NewClient(srv.URL)

	store, err := NewStore(dir, client)
	require.NoError(t, err)
	_, err = store.Login(context.Background(), "ana@curalis.dev", "pw")
	require.NoError(t, err)

	assert.Equal(t, "opaque-session-token", store.Token())
}

func TestLogoutWipesLocalSessionEvenWhenServerFails(t *testing.T) {
	dir := t.TempDir()
	loginSrv := authServer(t, testToken(t, time.Hour))
	client := api.NewClient(loginSrv.URL)

	store, err := NewStore(dir, client)
	require.NoError(t, err)
	_, err = store.Login(context.Background(), "ana@curalis.dev", "pw")
	require.NoError(t, err)

	// Point the next call at a dead server: the logout API call fails but the
	// local token is still discarded.
	loginSrv.Close()
	err = store.Logout(context.Background())
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Empty(t, store.Token())

	_, statErr := os.Stat(filepath.Join(dir, sessionFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClearDropsSessionWithoutServerCall(t *testing.T) {
	dir := t.TempDir()
	srv := authServer(t, testToken(t, time.Hour))
	client := api.NewClient(srv.URL)

	store, err := NewStore(dir, client)
	require.NoError(t, err)
	_, err = store.Login(context.Background(), "ana@curalis.dev", "pw")
	require.NoError(t, err)

	store.Clear()
	assert.Empty(t, store.Token())
	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestCorruptSessionFileStartsLoggedOut(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFile), []byte("{not json"), 0o600))

	store, err := NewStore(dir, api.NewClient("http://localhost:0"))
	require.NoError(t, err)
	assert.Empty(t, store.Token())
}
