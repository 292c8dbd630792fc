package llm

import (
	"strings"
	"testing"
)

func TestTextToolScannerPassThrough(t *testing.T) {
	var s textToolScanner
	prose, calls := s.feed("plain assistant text")
	if prose != "plain assistant text" || len(calls) != 0 {
		t.Fatalf("expected untouched pass-through, got %q / %v", prose, calls)
	}
}

func TestTextToolScannerSingleFragment(t *testing.T) {
	var s textToolScanner
	prose, calls := s.feed(`before <tool_call>{"name":"lookup","arguments":{"q":"x"}}</tool_call> after`)
	if prose != "before  after" {
		t.Fatalf("unexpected prose %q", prose)
	}
	if len(calls) != 1 || calls[0].Name != "lookup" || calls[0].Arguments != `{"q":"x"}` {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

func TestTextToolScannerMarkerSplitAcrossFragments(t *testing.T) {
	full := `x <tool_call>{"name":"a","arguments":{}}</tool_call> y`
	for cut := 1; cut < len(full); cut++ {
		var s textToolScanner
		var prose strings.Builder
		var calls []inlineToolCall

		p, c := s.feed(full[:cut])
		prose.WriteString(p)
		calls = append(calls, c...)
		p, c = s.feed(full[cut:])
		prose.WriteString(p)
		calls = append(calls, c...)
		prose.WriteString(s.flush())

		if len(calls) != 1 || calls[0].Name != "a" {
			t.Fatalf("cut=%d: expected one call, got %+v", cut, calls)
		}
		if got := prose.String(); got != "x  y" {
			t.Fatalf("cut=%d: unexpected prose %q", cut, got)
		}
	}
}

func TestTextToolScannerStringArguments(t *testing.T) {
	var s textToolScanner
	_, calls := s.feed(`<tool_call>{"name":"echo","arguments":"{\"msg\":\"hi\"}"}</tool_call>`)
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	if calls[0].Arguments != `{"msg":"hi"}` {
		t.Fatalf("string-encoded arguments should be unwrapped, got %q", calls[0].Arguments)
	}
}

func TestTextToolScannerUnparseableBodyIsProse(t *testing.T) {
	var s textToolScanner
	prose, calls := s.feed(`<tool_call>not json at all</tool_call>`)
	if len(calls) != 0 {
		t.Fatalf("expected no calls, got %+v", calls)
	}
	if prose != `<tool_call>not json at all</tool_call>` {
		t.Fatalf("unparseable body should be restored verbatim, got %q", prose)
	}
}

func TestTextToolScannerFlushUnterminated(t *testing.T) {
	var s textToolScanner
	prose, calls := s.feed(`a <tool_call>{"name":`)
	if len(calls) != 0 {
		t.Fatalf("expected no calls, got %+v", calls)
	}
	if prose != "a " {
		t.Fatalf("expected only leading prose, got %q", prose)
	}
	if got := s.flush(); got != `<tool_call>{"name":` {
		t.Fatalf("flush should return buffered text, got %q", got)
	}
}

func TestTextToolScannerMultipleCallsInOneFragment(t *testing.T) {
	var s textToolScanner
	_, calls := s.feed(`<tool_call>{"name":"a","arguments":{}}</tool_call><tool_call>{"name":"b","arguments":{}}</tool_call>`)
	if len(calls) != 2 || calls[0].Name != "a" || calls[1].Name != "b" {
		t.Fatalf("expected calls a then b, got %+v", calls)
	}
}

func TestPartialMarkerSuffix(t *testing.T) {
	cases := []struct {
		text, want string
	}{
		{"hello <", "<"},
		{"hello <tool_c", "<tool_c"},
		{"hello <tool_call", "<tool_call"},
		{"hello", ""},
		{"a<b", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := partialMarkerSuffix(tc.text, textToolOpen); got != tc.want {
			t.Fatalf("partialMarkerSuffix(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
