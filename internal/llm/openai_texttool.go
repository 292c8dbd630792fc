package llm

import (
	"encoding/json"
	"strings"
)

// Some backends never emit structured tool_calls deltas and instead print the
// call inline in the assistant text, wrapped in marker tags:
//
//	<tool_call>{"name":"lookup","arguments":{"q":"x"}}</tool_call>
//
// textToolScanner separates that encoding from prose. Text flows through
// untouched until an opening marker appears; from there fragments accumulate
// in a buffer until the closing marker, and the buffered body is parsed as a
// call. An unterminated or unparseable body is handed back as prose so
// nothing the model said is ever dropped.
const (
	textToolOpen  = "<tool_call>"
	textToolClose = "</tool_call>"
)

type inlineToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type textToolScanner struct {
	active bool
	body   strings.Builder
	// pending holds a prose suffix that might be the start of an opening
	// marker split across fragments. It is released as prose once the next
	// fragment disambiguates it.
	pending string
}

// feed consumes one text fragment and returns the prose that is safe to emit
// plus any tool calls completed by this fragment.
func (s *textToolScanner) feed(frag string) (string, []inlineToolCall) {
	var prose strings.Builder
	var calls []inlineToolCall

	text := s.pending + frag
	s.pending = ""

	for text != "" {
		if s.active {
			s.body.WriteString(text)
			text = ""
			buffered := s.body.String()
			end := strings.Index(buffered, textToolClose)
			if end < 0 {
				break
			}
			body := buffered[:end]
			rest := buffered[end+len(textToolClose):]
			s.body.Reset()
			s.active = false

			if call, ok := parseInlineToolCall(body); ok {
				calls = append(calls, call)
			} else {
				// Not a call after all; restore the original text verbatim.
				prose.WriteString(textToolOpen + body + textToolClose)
			}
			text = rest
			continue
		}

		start := strings.Index(text, textToolOpen)
		if start >= 0 {
			prose.WriteString(text[:start])
			text = text[start+len(textToolOpen):]
			s.active = true
			continue
		}

		// No full marker. Hold back a trailing partial marker so a split
		// "<tool_" / "call>..." pair is still recognized next fragment.
		hold := partialMarkerSuffix(text, textToolOpen)
		prose.WriteString(text[:len(text)-len(hold)])
		s.pending = hold
		text = ""
	}

	return prose.String(), calls
}

// flush ends the turn: whatever is still buffered was never a complete tool
// call, so it is returned as prose.
func (s *textToolScanner) flush() string {
	out := s.pending
	s.pending = ""
	if s.active {
		out += textToolOpen + s.body.String()
		s.body.Reset()
		s.active = false
	}
	return out
}

// partialMarkerSuffix returns the longest proper suffix of text that is a
// prefix of marker.
func partialMarkerSuffix(text, marker string) string {
	max := len(marker) - 1
	if max > len(text) {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(marker, text[len(text)-n:]) {
			return text[len(text)-n:]
		}
	}
	return ""
}

func parseInlineToolCall(body string) (inlineToolCall, bool) {
	var raw struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil || raw.Name == "" {
		return inlineToolCall{}, false
	}

	args := "{}"
	if len(raw.Arguments) > 0 {
		// Arguments may be a JSON object or a pre-serialized string.
		var s string
		if err := json.Unmarshal(raw.Arguments, &s); err == nil {
			args = s
		} else {
			args = string(raw.Arguments)
		}
	}
	return inlineToolCall{ID: raw.ID, Name: raw.Name, Arguments: args}, true
}
