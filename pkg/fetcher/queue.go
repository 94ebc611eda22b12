package fetcher

import (
	"net/url"
	"sync"
)

// URLQueue holds listing pages still to be fetched. Every URL is accepted
// once, so a pagination link pointing back to a visited page ends the walk.
type URLQueue struct {
	mu      sync.Mutex
	queue   []string
	visited map[string]bool
}

// NewURLQueue creates a new URL queue.
func NewURLQueue() *URLQueue {
	return &URLQueue{
		visited: make(map[string]bool),
	}
}

// Add adds a URL to the queue if not already seen.
func (q *URLQueue) Add(rawURL string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	normalized := normalizeURL(rawURL)
	if normalized == "" || q.visited[normalized] {
		return false
	}

	q.visited[normalized] = true
	q.queue = append(q.queue, normalized)
	return true
}

// Pop removes and returns the next URL from the queue.
func (q *URLQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return "", false
	}

	next := q.queue[0]
	q.queue = q.queue[1:]
	return next, true
}

// Len returns the number of items in the queue.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Seen returns the number of distinct URLs ever added.
func (q *URLQueue) Seen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.visited)
}

// normalizeURL normalizes a URL for comparison. The query is kept because
// listing pages differ only by their "from" parameter.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return ""
	}

	// Remove fragment
	parsed.Fragment = ""
	parsed.RawFragment = ""

	// Remove trailing slash from path (unless it's just "/")
	if len(parsed.Path) > 1 && parsed.Path[len(parsed.Path)-1] == '/' {
		parsed.Path = parsed.Path[:len(parsed.Path)-1]
		parsed.RawPath = ""
	}

	return parsed.String()
}
