package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// allowAll is what robotstxt answers for a missing robots.txt.
var allowAll, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

// Agent evaluates robots.txt rules with a per-host cache.
type Agent struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData

	flight singleflight.Group
}

// NewAgent creates an agent that fetches robots.txt with client and matches
// rules for userAgent. A nil client gets a plain client with a 10 second
// timeout.
func NewAgent(client *http.Client, userAgent string) *Agent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Agent{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether target may be fetched.
// Hosts whose robots.txt cannot be retrieved are allowed, and that answer is
// cached like any other so a failing host costs one request.
func (a *Agent) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return a.rules(ctx, target).TestAgent(path, a.userAgent)
}

func (a *Agent) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	key := strings.ToLower(target.Scheme + "://" + target.Host)

	a.mu.RLock()
	data, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := a.flight.Do(key, func() (any, error) {
		a.mu.RLock()
		cached, ok := a.cache[key]
		a.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := a.fetch(ctx, key+"/robots.txt")
		if err != nil {
			data = allowAll
		}
		a.mu.Lock()
		a.cache[key] = data
		a.mu.Unlock()
		return data, nil
	})
	return v.(*robotstxt.RobotsData)
}

func (a *Agent) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// FromResponse allows everything on 4xx and disallows everything on 5xx.
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Purge evicts the cached rules for the scheme and host of u.
func (a *Agent) Purge(u *url.URL) {
	if u == nil {
		return
	}
	key := strings.ToLower(u.Scheme + "://" + u.Host)
	a.mu.Lock()
	delete(a.cache, key)
	a.mu.Unlock()
}
