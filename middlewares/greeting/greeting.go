package greeting

import (
	"context"
	"strings"
	"unicode"

	mw "ember/internal/middleware"
)

func init() {
	mw.Register(Greeting{})
}

// Greeting intercepts simple salutations and responds immediately without
// hitting the backend.
type Greeting struct{}

func (Greeting) ID() string    { return "greeting" }
func (Greeting) Priority() int { return 110 } // run early

func (Greeting) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Context == nil {
		return true
	}
	if v, ok := e.Context["greeting"].(bool); ok {
		return v
	}
	return true
}

func (Greeting) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}
	if isGreetingOnly(strings.TrimSpace(e.UserText)) {
		reply := "Hi, how can I help you today?"
		return mw.Decision{
			Cancel:      true,
			ReplaceText: &reply,
			Reason:      "greeting",
		}, nil
	}
	return mw.Decision{}, nil
}

var greetWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "heya": {}, "howdy": {}, "yo": {},
	"good": {}, "morning": {}, "afternoon": {}, "evening": {}, "greetings": {},
}

func isGreetingOnly(s string) bool {
	s = strings.TrimSpace(stripPunct(s))
	if s == "" {
		return false
	}
	words := strings.Fields(s)
	if len(words) > 4 {
		return false
	}
	for i, w := range words {
		w = strings.ToLower(stripPunct(w))
		if w == "" {
			return false
		}
		if _, ok := greetWords[w]; ok {
			continue
		}
		if w == "there" && i == len(words)-1 {
			continue
		}
		return false
	}
	return true
}

func stripPunct(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) && r != '\'' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
