package llm

import (
	"context"
	"io"
	"strings"
	"testing"

	"ember/internal/chat"
)

// nibbleReader yields at most n bytes per Read so tests can force arbitrary
// chunk boundaries through the line reassembler.
type nibbleReader struct {
	data []byte
	n    int
}

func (r *nibbleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.n
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

type partSink struct {
	parts []chat.Part
}

func (s *partSink) add(p chat.Part) { s.parts = append(s.parts, p) }

func (s *partSink) textParts() []string {
	var out []string
	for _, p := range s.parts {
		if !p.IsTool() {
			out = append(out, p.Text)
		}
	}
	return out
}

func (s *partSink) toolParts() []*chat.ToolCall {
	var out []*chat.ToolCall
	for _, p := range s.parts {
		if p.IsTool() {
			out = append(out, p.Tool)
		}
	}
	return out
}

func events(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestDecodeStreamTextParts(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	text, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello" {
		t.Fatalf("expected Hello, got %q", text)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no tool calls, got %d", len(calls))
	}
	got := sink.textParts()
	if len(got) != 2 || got[0] != "Hel" || got[1] != "lo" {
		t.Fatalf("expected parts [Hel lo], got %v", got)
	}
}

func TestDecodeStreamSplitToolArguments(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"x\"}"}}]},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	_, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(calls))
	}
	call := calls[0]
	if call.Name != "lookup" || call.ID != "call_1" {
		t.Fatalf("unexpected call identity: %+v", call)
	}
	if q, ok := call.Args["q"].(string); !ok || q != "x" {
		t.Fatalf("expected args {q: x}, got %v", call.Args)
	}
	if len(sink.toolParts()) != 1 {
		t.Fatalf("expected exactly one emitted tool part")
	}
}

func TestDecodeStreamChunkBoundaryInvariance(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"thinking "}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"search","arguments":"{\"term\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"go\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{"content":"done"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	)

	reference := &partSink{}
	refText, refCalls, err := decodeStream(context.Background(), strings.NewReader(stream), reference.add)
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}

	for _, chunk := range []int{1, 2, 3, 5, 7, 16, 64} {
		sink := &partSink{}
		text, calls, err := decodeStream(context.Background(), &nibbleReader{data: []byte(stream), n: chunk}, sink.add)
		if err != nil {
			t.Fatalf("chunk=%d decode: %v", chunk, err)
		}
		if text != refText {
			t.Fatalf("chunk=%d text %q != reference %q", chunk, text, refText)
		}
		if len(calls) != len(refCalls) {
			t.Fatalf("chunk=%d got %d calls, reference %d", chunk, len(calls), len(refCalls))
		}
		for i := range calls {
			if calls[i].Name != refCalls[i].Name || calls[i].Arguments != refCalls[i].Arguments {
				t.Fatalf("chunk=%d call %d mismatch: %+v vs %+v", chunk, i, calls[i], refCalls[i])
			}
		}
	}
}

func TestDecodeStreamNoDuplicateFinalize(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ignored"}}]},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	_, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one call despite repeated finish, got %d", len(calls))
	}
	if calls[0].Arguments != "{}" {
		t.Fatalf("completed call must not absorb later fragments, got %q", calls[0].Arguments)
	}
}

func TestDecodeStreamStopsAtDone(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"before"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"after"}}]}`,
	)
	sink := &partSink{}
	text, _, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "before" {
		t.Fatalf("events after the sentinel must be ignored, got %q", text)
	}
}

func TestDecodeStreamSkipsMalformedEvent(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {this is not json`,
		`: comment line, no data prefix`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	text, _, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ab" {
		t.Fatalf("malformed event must be skipped, got %q", text)
	}
}

func TestDecodeStreamBadArgumentJSON(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{broken"}}]},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	_, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("bad argument JSON must not fail the stream: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected an error-tagged placeholder call, got %d calls", len(calls))
	}
	if calls[0].Args["raw"] != "{broken" {
		t.Fatalf("placeholder should carry raw arguments, got %v", calls[0].Args)
	}
	if _, ok := calls[0].Args["error"]; !ok {
		t.Fatalf("placeholder should carry an error tag, got %v", calls[0].Args)
	}
}

func TestDecodeStreamInlineToolCall(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"Let me check. <tool_c"}}]}`,
		`data: {"choices":[{"delta":{"content":"all>{\"name\":\"lookup\",\"arguments\":{\"q\":\"x\"}}</tool_call> Done."}}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	text, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0].Name != "lookup" {
		t.Fatalf("expected one inline call named lookup, got %+v", calls)
	}
	if q, ok := calls[0].Args["q"].(string); !ok || q != "x" {
		t.Fatalf("expected args {q: x}, got %v", calls[0].Args)
	}
	if strings.Contains(text, "<tool_call>") || strings.Contains(text, "lookup") {
		t.Fatalf("tool markup leaked into prose: %q", text)
	}
	if !strings.Contains(text, "Let me check.") || !strings.Contains(text, "Done.") {
		t.Fatalf("surrounding prose lost: %q", text)
	}
}

func TestDecodeStreamInlineToolCallDedup(t *testing.T) {
	call := `<tool_call>{"name":"lookup","arguments":{"q":"x"}}</tool_call>`
	stream := events(
		`data: {"choices":[{"delta":{"content":`+jsonString(call+call)+`}}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	_, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("identical inline calls must be deduplicated, got %d", len(calls))
	}
}

func TestDecodeStreamUnterminatedInlineMarkerIsProse(t *testing.T) {
	stream := events(
		`data: {"choices":[{"delta":{"content":"see <tool_call>{\"name\":"}}]}`,
		`data: [DONE]`,
	)
	sink := &partSink{}
	text, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("unterminated marker must not produce a call, got %d", len(calls))
	}
	if !strings.Contains(text, "<tool_call>") {
		t.Fatalf("unterminated marker body must surface as prose, got %q", text)
	}
}

func TestDecodeStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := events(`data: {"choices":[{"delta":{"content":"never"}}]}`, `data: [DONE]`)
	sink := &partSink{}
	text, _, err := decodeStream(ctx, strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if text != "" {
		t.Fatalf("cancelled before first read, expected no text, got %q", text)
	}
}

func TestDecodeStreamEOFFinalizesOpenBuffers(t *testing.T) {
	// No finish_reason and no [DONE]: the open buffer is still closed out
	// at end of stream.
	stream := events(
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}]}}]}`,
	)
	sink := &partSink{}
	_, calls, err := decodeStream(context.Background(), strings.NewReader(stream), sink.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0].Name != "lookup" {
		t.Fatalf("expected buffer finalized at EOF, got %+v", calls)
	}
}

func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
