package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RobotsAgent is the user-agent token matched in robots.txt groups.
const RobotsAgent = "catalogcrawl"

// RobotsPolicy is the parsed robots.txt of one site.
type RobotsPolicy struct {
	disallowed []string
	allowed    []string
	crawlDelay time.Duration
}

// FetchRobots downloads and parses robots.txt for the site of rawURL. A
// missing or unreachable robots.txt yields a policy that allows everything.
func FetchRobots(ctx context.Context, client *http.Client, rawURL string, logger *slog.Logger) (*RobotsPolicy, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("robots.txt unreachable, assuming allowed", "url", robotsURL, "error", err)
		return &RobotsPolicy{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("no robots.txt", "url", robotsURL, "status", resp.StatusCode)
		return &RobotsPolicy{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024)) // 512KB limit
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	return ParseRobots(string(body)), nil
}

// ParseRobots parses robots.txt content, keeping the rules of the "*" group
// and of groups naming RobotsAgent.
func ParseRobots(content string) *RobotsPolicy {
	p := &RobotsPolicy{}
	inOurSection := false

	for _, line := range strings.Split(content, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			agent := strings.ToLower(value)
			inOurSection = agent == "*" || strings.Contains(agent, RobotsAgent)
		case "disallow":
			if inOurSection && value != "" {
				p.disallowed = append(p.disallowed, value)
			}
		case "allow":
			if inOurSection && value != "" {
				p.allowed = append(p.allowed, value)
			}
		case "crawl-delay":
			if inOurSection {
				var delay float64
				if _, err := fmt.Sscanf(value, "%f", &delay); err == nil {
					p.crawlDelay = time.Duration(delay * float64(time.Second))
				}
			}
		}
	}
	return p
}

// Allowed reports whether rawURL may be fetched. Allow rules win over
// disallow rules.
func (p *RobotsPolicy) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	for _, pattern := range p.allowed {
		if matchRobotsPattern(pattern, path) {
			return true
		}
	}
	for _, pattern := range p.disallowed {
		if matchRobotsPattern(pattern, path) {
			return false
		}
	}
	return true
}

// CrawlDelay returns the site's requested delay between pages.
func (p *RobotsPolicy) CrawlDelay() time.Duration { return p.crawlDelay }

// matchRobotsPattern checks if a URL path matches a robots.txt pattern.
// Supports * (any sequence) and $ (end of URL) wildcards.
func matchRobotsPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}

	endsWithDollar := strings.HasSuffix(pattern, "$")
	if endsWithDollar {
		pattern = pattern[:len(pattern)-1]
	}

	if strings.Contains(pattern, "*") {
		return matchWildcard(pattern, path, endsWithDollar)
	}

	if endsWithDollar {
		return path == pattern
	}
	return strings.HasPrefix(path, pattern)
}

// matchWildcard handles * wildcard matching in robots.txt patterns.
func matchWildcard(pattern, path string, mustEnd bool) bool {
	parts := strings.Split(pattern, "*")
	pos := 0

	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 {
			// First part must match from the start
			return false
		}
		pos += idx + len(part)
	}

	if mustEnd {
		return pos == len(path)
	}
	return true
}
