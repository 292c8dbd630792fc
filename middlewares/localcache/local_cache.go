package localcache

import (
	"context"
	"sync"
	"time"

	mw "ember/internal/middleware"
)

const ttl = 5 * time.Minute

func init() {
	mw.Register(New())
}

func New() *LocalCache {
	return &LocalCache{entries: make(map[string]entry)}
}

type entry struct {
	response string
	storedAt time.Time
}

// LocalCache answers a repeated prompt from memory instead of calling the
// backend again, as long as the previous answer is recent.
type LocalCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func (l *LocalCache) ID() string { return "local-cache" }

// Runs after greeting (110) and token_budget (90).
func (l *LocalCache) Priority() int { return 80 }

func (l *LocalCache) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e.Name {
	case mw.EventBeforeLLMRequest:
		hit, ok := l.entries[e.UserText]
		if !ok {
			return mw.Decision{}, nil
		}
		if time.Since(hit.storedAt) >= ttl {
			delete(l.entries, e.UserText)
			return mw.Decision{}, nil
		}
		reply := hit.response
		return mw.Decision{
			Cancel:      true,
			ReplaceText: &reply,
			Reason:      "served from local cache",
		}, nil

	case mw.EventAfterLLMResponse:
		if e.UserText != "" && e.LLMText != "" {
			l.entries[e.UserText] = entry{response: e.LLMText, storedAt: time.Now()}
		}
	}
	return mw.Decision{}, nil
}
