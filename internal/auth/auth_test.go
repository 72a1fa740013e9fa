package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenCacheRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "token.json")
	cache := NewTokenCache(path)
	assert.Equal(t, path, cache.Path())

	tok, err := cache.Load()
	require.NoError(t, err, "missing file is not an error")
	assert.Nil(t, tok)

	want := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, cache.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o077, "token must not be readable by others")

	got, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	require.NoError(t, cache.Delete())
	require.NoError(t, cache.Delete(), "deleting twice is fine")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTokenCacheErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	cache := NewTokenCache(path)
	assert.ErrorIs(t, cache.Save(nil), ErrNilToken)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := cache.Load()
	assert.Error(t, err)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{{}, {ClientSecret: "s"}, {ClientID: "i"}} {
		_, err := New(cfg, nil)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}
}

// tokenEndpoint is a client-credentials token endpoint that counts grants.
type tokenEndpoint struct {
	*httptest.Server
	grants atomic.Int32
}

func newTokenEndpoint(t *testing.T) *tokenEndpoint {
	t.Helper()
	e := &tokenEndpoint{}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		e.grants.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(e.Close)
	return e
}

func newTestAuthenticator(t *testing.T, e *tokenEndpoint, path string) *Authenticator {
	t.Helper()
	a, err := New(Config{ClientID: "id", ClientSecret: "secret", TokenURL: e.URL, CachePath: path}, nil)
	require.NoError(t, err)
	return a
}

func TestTokenSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		onDisk     *oauth2.Token
		wantAccess string
		wantGrants int32
	}{
		{name: "nothing cached", wantAccess: "fresh", wantGrants: 1},
		{
			name:       "valid disk token",
			onDisk:     &oauth2.Token{AccessToken: "disk", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)},
			wantAccess: "disk",
		},
		{
			name:       "expired disk token",
			onDisk:     &oauth2.Token{AccessToken: "stale", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour)},
			wantAccess: "fresh",
			wantGrants: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTokenEndpoint(t)
			path := filepath.Join(t.TempDir(), "token.json")
			if tt.onDisk != nil {
				require.NoError(t, NewTokenCache(path).Save(tt.onDisk))
			}
			a := newTestAuthenticator(t, e, path)

			for i := 0; i < 3; i++ {
				tok, err := a.Token(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tt.wantAccess, tok.AccessToken)
			}
			assert.Equal(t, tt.wantGrants, e.grants.Load())

			saved, err := NewTokenCache(path).Load()
			require.NoError(t, err)
			require.NotNil(t, saved)
			assert.Equal(t, tt.wantAccess, saved.AccessToken)
		})
	}
}

func TestTokenConcurrentCallersShareGrant(t *testing.T) {
	t.Parallel()

	e := newTokenEndpoint(t)
	a := newTestAuthenticator(t, e, filepath.Join(t.TempDir(), "token.json"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Token(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, e.grants.Load())
}

func TestUnwritableCacheStillReturnsToken(t *testing.T) {
	t.Parallel()

	e := newTokenEndpoint(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	a := newTestAuthenticator(t, e, filepath.Join(blocker, "token.json"))
	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, NewTokenCache(path).Save(&oauth2.Token{AccessToken: "x"}))

	a, err := New(Config{ClientID: "id", ClientSecret: "secret", CachePath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Logout())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
