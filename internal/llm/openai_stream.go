package llm

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"ember/internal/chat"
)

// turnState is the per-response decode state. A fresh value is created for
// every adapter call, so nothing can leak between turns.
type turnState struct {
	emit func(chat.Part)

	buffers   map[int]*toolCallBuffer
	completed map[int]bool

	scanner        textToolScanner
	emittedKeys    map[uint64]bool
	emittedIDs     map[string]bool
	hasEmittedText bool

	text  strings.Builder
	calls []chat.ToolCall
}

// toolCallBuffer accumulates one structured tool call arriving as deltas.
// id and name take the first non-empty value and keep it; arguments grow by
// concatenation.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

func newTurnState(emit func(chat.Part)) *turnState {
	if emit == nil {
		emit = func(chat.Part) {}
	}
	return &turnState{
		emit:        emit,
		buffers:     map[int]*toolCallBuffer{},
		completed:   map[int]bool{},
		emittedKeys: map[uint64]bool{},
		emittedIDs:  map[string]bool{},
	}
}

// decodeStream consumes a text/event-stream body. Cancellation is polled
// before every read and ends the turn cleanly with whatever was emitted so
// far; it is not an error. A normal EOF without the [DONE] sentinel is
// tolerated the same way.
func decodeStream(ctx context.Context, r io.Reader, emit func(chat.Part)) (string, []chat.ToolCall, error) {
	st := newTurnState(emit)
	buf := make([]byte, 4096)
	carry := ""

	for {
		select {
		case <-ctx.Done():
			return st.text.String(), st.calls, nil
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			carry += string(buf[:n])
			lines := strings.Split(carry, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				if st.handleLine(line) {
					st.finishTurn()
					return st.text.String(), st.calls, nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				st.finishTurn()
				return st.text.String(), st.calls, nil
			}
			return st.text.String(), st.calls, err
		}
	}
}

// handleLine processes one complete line and reports whether the end
// sentinel was seen.
func (st *turnState) handleLine(line string) bool {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "data:") {
		return false
	}
	payload := strings.TrimSpace(line[len("data:"):])
	if payload == "" {
		return false
	}
	if payload == "[DONE]" {
		return true
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// One malformed vendor event must not kill the stream.
		return false
	}
	if len(chunk.Choices) == 0 {
		return false
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		st.feedText(choice.Delta.Content)
	}
	for _, tc := range choice.Delta.ToolCalls {
		st.mergeDelta(tc)
	}
	if choice.FinishReason != "" {
		st.finalizeOpen()
	}
	return false
}

// feedText routes a text fragment through the inline tool-call scanner and
// emits whatever comes out the other side as prose.
func (st *turnState) feedText(frag string) {
	prose, calls := st.scanner.feed(frag)
	st.emitProse(prose)
	for _, call := range calls {
		st.emitInline(call)
	}
}

func (st *turnState) emitProse(s string) {
	if s == "" {
		return
	}
	st.hasEmittedText = true
	st.text.WriteString(s)
	st.emit(chat.TextPart(s))
}

func (st *turnState) mergeDelta(tc wireToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	if st.completed[idx] {
		return
	}
	b := st.buffers[idx]
	if b == nil {
		b = &toolCallBuffer{}
		st.buffers[idx] = b
	}
	if b.id == "" && tc.ID != "" {
		b.id = tc.ID
	}
	if b.name == "" && tc.Function.Name != "" {
		b.name = tc.Function.Name
	}
	b.args.WriteString(tc.Function.Arguments)
}

// finalizeOpen closes every in-progress buffer. Triggered by a non-empty
// finish_reason and again at end of stream for buffers the backend never
// explicitly finished.
func (st *turnState) finalizeOpen() {
	for _, idx := range sortedBufferIndices(st.buffers) {
		st.finalizeIndex(idx)
	}
}

func (st *turnState) finalizeIndex(idx int) {
	b := st.buffers[idx]
	if b == nil || st.completed[idx] {
		return
	}
	delete(st.buffers, idx)
	st.completed[idx] = true

	raw := b.args.String()
	call := chat.ToolCall{
		ID:        b.id,
		Name:      b.name,
		Arguments: raw,
	}
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}

	var args map[string]any
	if raw == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		// Bad argument JSON is an error for this call only, not the stream.
		derr := &DecodeError{Index: idx, Raw: raw, Err: err}
		args = map[string]any{"error": derr.Error(), "raw": raw}
	}
	call.Args = args

	st.calls = append(st.calls, call)
	st.emit(chat.ToolPart(&call))
}

// emitInline emits a text-encoded tool call unless the same call was already
// seen this turn, keyed by (name, argument hash) and by explicit id.
func (st *turnState) emitInline(in inlineToolCall) {
	key := inlineDedupKey(in.Name, in.Arguments)
	if st.emittedKeys[key] {
		return
	}
	if in.ID != "" && st.emittedIDs[in.ID] {
		return
	}
	st.emittedKeys[key] = true
	if in.ID == "" {
		in.ID = "call_" + uuid.NewString()
	}
	st.emittedIDs[in.ID] = true

	call := chat.ToolCall{
		ID:        in.ID,
		Name:      in.Name,
		Arguments: in.Arguments,
		Args:      chat.ParseToolArgs(in.Arguments),
	}
	st.calls = append(st.calls, call)
	st.emit(chat.ToolPart(&call))
}

// finishTurn flushes the inline scanner and closes any buffers the backend
// left open at stream end. A whitespace-only flush on a turn that never
// produced prose is dropped: it is marker padding, not assistant text.
func (st *turnState) finishTurn() {
	flush := st.scanner.flush()
	if strings.TrimSpace(flush) != "" || st.hasEmittedText {
		st.emitProse(flush)
	}
	st.finalizeOpen()
}

func inlineDedupKey(name, args string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(args))
	return h.Sum64()
}

func sortedBufferIndices(buffers map[int]*toolCallBuffer) []int {
	out := make([]int, 0, len(buffers))
	for idx := range buffers {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
