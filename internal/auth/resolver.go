// Package auth locates the bearer token used for backend calls.
//
// Tiers are tried in order: the session token injected by the host, the
// persisted token store, then the request's auth cookies. When none yields
// a token the request proceeds unauthenticated.
//
// The session and cookie tiers only exist on user requests. The resolver
// keeps the last token each of them produced so calls made outside a
// request, like the dashboard's poll loop, authenticate as the last user did.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/internal/metrics"
)

// Source names the tier a token came from.
type Source string

const (
	SourceSession Source = "session"
	SourceStore   Source = "store"
	SourceCookie  Source = "cookie"
	SourceNone    Source = "none"
)

const noTokenKey = "auth.no_token"

type contextKey string

const (
	sessionKey contextKey = "auth_session"
	cookiesKey contextKey = "auth_cookies"
)

// WithSessionToken attaches a host-provided session token to ctx. It takes
// precedence over the configured session token.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionKey, token)
}

// WithCookies attaches browser cookies to ctx for the cookie tier.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, cookiesKey, cookies)
}

// WithRequest copies the cookies of r into ctx.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return WithCookies(ctx, r.Cookies())
}

// Resolver finds a bearer token for outbound requests.
type Resolver struct {
	sessionToken string
	store        TokenStore
	storeKeys    []string
	cookieNames  []string
	logger       logger.Logger
	warn         *logger.Throttled

	mu          sync.RWMutex
	seenSession string
	seenCookie  string
}

// NewResolver builds a Resolver from cfg. store may be nil to skip the
// persisted tier.
func NewResolver(cfg config.AuthConfig, store TokenStore, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Resolver{
		sessionToken: cfg.SessionToken,
		store:        store,
		storeKeys:    cfg.StoreKeys,
		cookieNames:  cfg.CookieNames,
		logger:       log,
		warn:         logger.NewThrottled(log, time.Minute),
	}
}

// Resolve returns the first token found and the tier it came from. An empty
// token comes back with SourceNone.
func (r *Resolver) Resolve(ctx context.Context) (string, Source) {
	if token, ok := ctx.Value(sessionKey).(string); ok && token != "" {
		r.remember(&r.seenSession, token)
		return token, SourceSession
	}
	if token := r.recalled(&r.seenSession); token != "" {
		return token, SourceSession
	}
	if r.sessionToken != "" {
		return r.sessionToken, SourceSession
	}

	if r.store != nil && len(r.storeKeys) > 0 {
		stored, key, err := r.store.Lookup(ctx, r.storeKeys)
		switch {
		case err == nil && stored != "":
			return parseStoredToken(stored), SourceStore
		case err != nil && !errors.Is(err, ErrNoToken):
			// A broken store must not block the cookie tier.
			r.logger.WithError(err).WithField("key", key).Debug("Token store lookup failed")
		}
	}

	if token := r.cookieToken(ctx); token != "" {
		r.remember(&r.seenCookie, token)
		return token, SourceCookie
	}
	if token := r.recalled(&r.seenCookie); token != "" {
		return token, SourceCookie
	}

	return "", SourceNone
}

func (r *Resolver) cookieToken(ctx context.Context) string {
	cookies, _ := ctx.Value(cookiesKey).([]*http.Cookie)
	for _, c := range cookies {
		for _, name := range r.cookieNames {
			if c.Name == name && c.Value != "" {
				return decodeCookie(c.Value)
			}
		}
	}
	return ""
}

func (r *Resolver) remember(slot *string, token string) {
	r.mu.Lock()
	*slot = token
	r.mu.Unlock()
}

func (r *Resolver) recalled(slot *string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *slot
}

// Headers returns the auth headers for an outbound request. With no token it
// logs a warning (throttled) and returns an empty header set.
func (r *Resolver) Headers(ctx context.Context) http.Header {
	h := make(http.Header)

	token, source := r.Resolve(ctx)
	metrics.IncrementAuthResolution(string(source))
	if token == "" {
		r.warn.Warn(noTokenKey, "No authentication token found", nil)
		return h
	}
	r.warn.Reset(noTokenKey)

	r.logger.WithField("source", string(source)).Debug("Resolved auth token")
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	return h
}

// parseStoredToken accepts either a bare token or a JSON object carrying
// token or accessToken.
func parseStoredToken(stored string) string {
	var obj struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal([]byte(stored), &obj); err != nil {
		return stored
	}
	if obj.Token != "" {
		return obj.Token
	}
	if obj.AccessToken != "" {
		return obj.AccessToken
	}
	return stored
}

func decodeCookie(v string) string {
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
