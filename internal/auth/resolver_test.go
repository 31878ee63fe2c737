package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/logger"
)

type mapStore map[string]string

func (m mapStore) Lookup(_ context.Context, keys []string) (string, string, error) {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v, k, nil
		}
	}
	return "", "", ErrNoToken
}

type brokenStore struct{}

func (brokenStore) Lookup(context.Context, []string) (string, string, error) {
	return "", "", errors.New("connection refused")
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Store:       config.TokenStoreNone,
		StoreKeys:   []string{"facets-auth-token", "auth-token", "token"},
		CookieNames: []string{"facets-token", "auth-token"},
	}
}

func TestResolvePrecedence(t *testing.T) {
	cookies := []*http.Cookie{{Name: "facets-token", Value: "cookie-token"}}

	tests := []struct {
		name       string
		session    string
		ctxSession string
		store      TokenStore
		cookies    []*http.Cookie
		want       string
		wantSource Source
	}{
		{
			name:       "context session beats everything",
			session:    "config-session",
			ctxSession: "host-session",
			store:      mapStore{"token": "stored"},
			cookies:    cookies,
			want:       "host-session",
			wantSource: SourceSession,
		},
		{
			name:       "configured session beats store",
			session:    "config-session",
			store:      mapStore{"token": "stored"},
			cookies:    cookies,
			want:       "config-session",
			wantSource: SourceSession,
		},
		{
			name:       "store beats cookie",
			store:      mapStore{"auth-token": "stored"},
			cookies:    cookies,
			want:       "stored",
			wantSource: SourceStore,
		},
		{
			name:       "store key order",
			store:      mapStore{"token": "third", "facets-auth-token": "first"},
			want:       "first",
			wantSource: SourceStore,
		},
		{
			name:       "broken store falls through to cookie",
			store:      brokenStore{},
			cookies:    cookies,
			want:       "cookie-token",
			wantSource: SourceCookie,
		},
		{
			name:       "cookie value is url-decoded",
			cookies:    []*http.Cookie{{Name: "other", Value: "x"}, {Name: "auth-token", Value: "a%2Fb%3D"}},
			want:       "a/b=",
			wantSource: SourceCookie,
		},
		{
			name:       "nothing found",
			store:      mapStore{},
			cookies:    []*http.Cookie{{Name: "session", Value: "irrelevant"}},
			want:       "",
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAuthConfig()
			cfg.SessionToken = tt.session
			r := NewResolver(cfg, tt.store, logger.NewNullLogger())

			ctx := context.Background()
			if tt.ctxSession != "" {
				ctx = WithSessionToken(ctx, tt.ctxSession)
			}
			if tt.cookies != nil {
				ctx = WithCookies(ctx, tt.cookies)
			}

			token, source := r.Resolve(ctx)
			assert.Equal(t, tt.want, token)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestParseStoredToken(t *testing.T) {
	assert.Equal(t, "abc", parseStoredToken("abc"))
	assert.Equal(t, "abc", parseStoredToken(`{"token":"abc","accessToken":"zzz"}`))
	assert.Equal(t, "zzz", parseStoredToken(`{"accessToken":"zzz"}`))
	assert.Equal(t, `{"user":"me"}`, parseStoredToken(`{"user":"me"}`))
	assert.Equal(t, `"quoted"`, parseStoredToken(`"quoted"`))
}

func TestHeaders(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.SessionToken = "s3cret"
		r := NewResolver(cfg, nil, nil)

		h := r.Headers(context.Background())
		assert.Equal(t, "Bearer s3cret", h.Get("Authorization"))
		assert.Equal(t, "application/json", h.Get("Content-Type"))
	})

	t.Run("without token", func(t *testing.T) {
		r := NewResolver(testAuthConfig(), nil, nil)

		h := r.Headers(context.Background())
		assert.Empty(t, h)
	})
}

func TestWithRequestCopiesCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "facets-token", Value: "from-browser"})

	r := NewResolver(testAuthConfig(), nil, nil)
	token, source := r.Resolve(WithRequest(context.Background(), req))

	require.Equal(t, SourceCookie, source)
	assert.Equal(t, "from-browser", token)
}

func TestResolveRecallsRequestTokens(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		r := NewResolver(testAuthConfig(), nil, nil)

		token, source := r.Resolve(context.Background())
		assert.Equal(t, SourceNone, source)
		assert.Empty(t, token)

		ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "facets-token", Value: "browser"}})
		_, _ = r.Resolve(ctx)

		token, source = r.Resolve(context.Background())
		assert.Equal(t, SourceCookie, source)
		assert.Equal(t, "browser", token)

		ctx = WithCookies(context.Background(), []*http.Cookie{{Name: "auth-token", Value: "rotated"}})
		_, _ = r.Resolve(ctx)
		token, _ = r.Resolve(context.Background())
		assert.Equal(t, "rotated", token, "latest cookie wins")
	})

	t.Run("session beats configured session", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.SessionToken = "config-session"
		r := NewResolver(cfg, nil, nil)

		_, _ = r.Resolve(WithSessionToken(context.Background(), "host-session"))

		token, source := r.Resolve(context.Background())
		assert.Equal(t, SourceSession, source)
		assert.Equal(t, "host-session", token)
	})

	t.Run("store still beats a remembered cookie", func(t *testing.T) {
		store := mapStore{}
		r := NewResolver(testAuthConfig(), store, nil)

		ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "facets-token", Value: "browser"}})
		_, _ = r.Resolve(ctx)

		store["token"] = "stored"
		token, source := r.Resolve(context.Background())
		assert.Equal(t, SourceStore, source)
		assert.Equal(t, "stored", token)
	})

	t.Run("unmatched cookies are not remembered", func(t *testing.T) {
		r := NewResolver(testAuthConfig(), nil, nil)

		ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "session", Value: "irrelevant"}})
		_, _ = r.Resolve(ctx)

		_, source := r.Resolve(context.Background())
		assert.Equal(t, SourceNone, source)
	})
}
