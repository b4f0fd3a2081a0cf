package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/dyluth/shop/internal/state"
	"github.com/rs/zerolog"
)

// storedCookie is the persisted form of one cookie for the API origin.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Jar is a cookie jar whose cookies for the API origin survive between runs.
// Every SetCookies writes the current cookie set through to the state store.
type Jar struct {
	jar    *cookiejar.Jar
	store  state.Store
	origin *url.URL
	logger zerolog.Logger

	mu sync.Mutex
}

// NewJar loads previously saved cookies for baseURL from store.
func NewJar(ctx context.Context, store state.Store, baseURL string, logger zerolog.Logger) (*Jar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j := &Jar{jar: inner, store: store, origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"}, logger: logger}

	var saved []storedCookie
	err = state.GetJSON(ctx, store, state.SessionCookieKey, &saved)
	switch {
	case err == nil:
		cookies := make([]*http.Cookie, 0, len(saved))
		for _, c := range saved {
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
		}
		inner.SetCookies(j.origin, cookies)
	case state.IsNotFound(err):
	default:
		logger.Warn().Err(err).Msg("ignoring unreadable saved session cookies")
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
	if err := j.save(context.Background()); err != nil {
		j.logger.Warn().Err(err).Msg("failed to persist session cookies")
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Clear drops every cookie for the API origin, locally and in the store.
func (j *Jar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	expired := make([]*http.Cookie, 0)
	for _, c := range j.jar.Cookies(j.origin) {
		expired = append(expired, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	j.jar.SetCookies(j.origin, expired)
	return j.store.Delete(ctx, state.SessionCookieKey)
}

func (j *Jar) save(ctx context.Context) error {
	current := j.jar.Cookies(j.origin)
	saved := make([]storedCookie, 0, len(current))
	for _, c := range current {
		saved = append(saved, storedCookie{Name: c.Name, Value: c.Value})
	}
	return state.SetJSON(ctx, j.store, state.SessionCookieKey, saved, 0)
}
