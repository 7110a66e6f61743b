package learning

import (
	"net/url"
	"strings"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// captureTargets picks up to max distinct pages to capture from urls,
// keeping their order. URLs are compared after canonicalization and at most
// perDomain pages are taken from one host.
func captureTargets(urls []string, max, perDomain int) []string {
	if max <= 0 {
		return nil
	}
	seen := map[string]struct{}{}
	perHost := map[string]int{}
	out := make([]string, 0, max)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		canonicalize(u)
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if perDomain > 0 && perHost[host] >= perDomain {
			continue
		}
		seen[key] = struct{}{}
		perHost[host]++
		out = append(out, key)
		if len(out) == max {
			break
		}
	}
	return out
}

func canonicalize(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
