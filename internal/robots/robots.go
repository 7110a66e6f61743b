// Package robots decides whether a result page may be captured, following
// the site's robots.txt for the configured User-Agent.
package robots

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL     = 30 * time.Minute
	maxRobotsBytes = 512 << 10
)

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one User-agent block.
type Group struct {
	Agents   []string
	Allow    []string
	Disallow []string
}

// Checker fetches robots.txt once per host and caches the outcome in memory.
// An unreachable or failing robots.txt (5xx, network error) disallows the
// whole host; a missing one (4xx) allows everything. Concurrent lookups for
// one origin share a single fetch.
type Checker struct {
	HTTPClient *http.Client
	UserAgent  string
	TTL        time.Duration

	mu       sync.Mutex
	entries  map[string]entry
	inflight singleflight.Group
	now      func() time.Time
}

type entry struct {
	rules   Rules
	denyAll bool
	expiry  time.Time
}

// Allowed reports whether pageURL may be fetched.
func (c *Checker) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	e := c.lookup(ctx, u.Scheme+"://"+u.Host)
	if e.denyAll {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return e.rules.IsAllowed(c.UserAgent, path)
}

func (c *Checker) lookup(ctx context.Context, origin string) entry {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	cached := func() (entry, bool) {
		c.mu.Lock()
		defer c.mu.Unlock()
		e, ok := c.entries[origin]
		return e, ok && now().Before(e.expiry)
	}
	if e, ok := cached(); ok {
		return e
	}

	v, _, _ := c.inflight.Do(origin, func() (interface{}, error) {
		if e, ok := cached(); ok {
			return e, nil
		}
		e := c.fetch(ctx, origin)
		ttl := c.TTL
		if ttl <= 0 {
			ttl = defaultTTL
		}
		e.expiry = now().Add(ttl)
		c.mu.Lock()
		if c.entries == nil {
			c.entries = make(map[string]entry)
		}
		c.entries[origin] = e
		c.mu.Unlock()
		return e, nil
	})
	return v.(entry)
}

func (c *Checker) fetch(ctx context.Context, origin string) entry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return entry{denyAll: true}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("origin", origin).Msg("robots.txt unreachable; disallowing host")
		return entry{denyAll: true}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		log.Debug().Int("status", resp.StatusCode).Str("origin", origin).Msg("robots.txt failed; disallowing host")
		return entry{denyAll: true}
	case resp.StatusCode >= 400:
		return entry{}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return entry{denyAll: true}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return entry{denyAll: true}
	}
	return entry{rules: Parse(string(data))}
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), maxRobotsBytes)
	var rules Rules
	var cur Group
	flush := func() {
		if len(cur.Agents) > 0 {
			rules.Groups = append(rules.Groups, cur)
		}
		cur = Group{}
	}
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			if len(cur.Allow) > 0 || len(cur.Disallow) > 0 {
				flush()
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
		case "allow":
			cur.Allow = append(cur.Allow, val)
		case "disallow":
			cur.Disallow = append(cur.Disallow, val)
		}
	}
	flush()
	return rules
}

// IsAllowed applies the longest matching rule of the best group for
// userAgent. Allow wins ties. No matching rule means allowed.
func (r Rules) IsAllowed(userAgent, path string) bool {
	g := r.group(userAgent)
	if g == nil {
		return true
	}
	best, allow := -1, true
	match := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" || !matches(p, path) {
				continue
			}
			n := len(strings.ReplaceAll(strings.TrimSuffix(p, "$"), "*", ""))
			if n > best || (n == best && isAllow) {
				best, allow = n, isAllow
			}
		}
	}
	match(g.Disallow, false)
	match(g.Allow, true)
	return allow
}

// group picks the group whose agent token is the longest substring of
// userAgent, falling back to "*".
func (r Rules) group(userAgent string) *Group {
	ua := strings.ToLower(userAgent)
	var best *Group
	bestLen := -1
	for i := range r.Groups {
		for _, a := range r.Groups[i].Agents {
			n := -1
			switch {
			case a == "*":
				n = 0
			case a != "" && strings.Contains(ua, a):
				n = len(a)
			}
			if n > bestLen {
				best, bestLen = &r.Groups[i], n
			}
		}
	}
	return best
}

func matches(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	parts := strings.Split(strings.TrimSuffix(pattern, "$"), "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchored {
		expr += "$"
	}
	re, err := regexp.Compile(expr)
	return err == nil && re.MatchString(path)
}
