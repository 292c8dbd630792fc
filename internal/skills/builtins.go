package skills

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxShellOutput = 4000
	maxFileOutput  = 8000
	maxFetchBody   = 64 * 1024
)

// RegisterBuiltins adds the always-available local tools.
func RegisterBuiltins(m *Manager) {
	m.Register(shellSkill())
	m.Register(fileSkill())
	m.Register(fetchSkill())
}

func shellSkill() Skill {
	return &funcSkill{
		name: "shell",
		desc: "Executes a shell command and returns its combined output.",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The shell command to execute.",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds (default 30).",
				},
			},
			"required": []string{"command"},
		},
		run: func(ctx context.Context, args map[string]any) (string, error) {
			command := stringArg(args, "command")
			if command == "" {
				return "", fmt.Errorf("command is required")
			}
			timeout := 30 * time.Second
			if t, ok := args["timeout"].(float64); ok && t > 0 {
				timeout = time.Duration(t) * time.Second
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
			output := truncate(string(out), maxShellOutput)
			if err != nil {
				// The model gets the failure as output, not as a turn error.
				return fmt.Sprintf("Error: %v\nOutput: %s", err, output), nil
			}
			return strings.TrimSpace(output), nil
		},
	}
}

func fileSkill() Skill {
	return &funcSkill{
		name: "file",
		desc: "Reads or writes a file on the local filesystem.",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"method": map[string]any{
					"type":        "string",
					"enum":        []string{"read", "write"},
					"description": "The operation to perform.",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "The file path.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write (write only).",
				},
				"append": map[string]any{
					"type":        "boolean",
					"description": "Append instead of overwriting (write only).",
				},
			},
			"required": []string{"method", "path"},
		},
		run: func(_ context.Context, args map[string]any) (string, error) {
			path := stringArg(args, "path")
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			switch stringArg(args, "method") {
			case "read":
				data, err := os.ReadFile(path)
				if err != nil {
					return "", fmt.Errorf("read failed: %w", err)
				}
				return truncate(string(data), maxFileOutput), nil
			case "write":
				content := stringArg(args, "content")
				flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
				if appendMode, _ := args["append"].(bool); appendMode {
					flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return "", fmt.Errorf("create dir: %w", err)
				}
				f, err := os.OpenFile(path, flags, 0o644)
				if err != nil {
					return "", fmt.Errorf("open failed: %w", err)
				}
				defer f.Close()
				if _, err := f.WriteString(content); err != nil {
					return "", fmt.Errorf("write failed: %w", err)
				}
				return fmt.Sprintf("Written %d bytes to %s", len(content), path), nil
			default:
				return "", fmt.Errorf("unknown method %q", stringArg(args, "method"))
			}
		},
	}
}

func fetchSkill() Skill {
	client := &http.Client{Timeout: 30 * time.Second}
	return &funcSkill{
		name: "fetch",
		desc: "Fetches a URL over HTTP and returns the text content.",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch.",
				},
			},
			"required": []string{"url"},
		},
		run: func(ctx context.Context, args map[string]any) (string, error) {
			url := stringArg(args, "url")
			if url == "" {
				return "", fmt.Errorf("url is required")
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetch failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
			if err != nil {
				return "", err
			}
			text := truncate(stripHTML(string(body)), maxShellOutput)
			return fmt.Sprintf("HTTP %d\n\n%s", resp.StatusCode, text), nil
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...(truncated)"
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
