package skills

import (
	"context"
	"fmt"

	"ember/internal/browser"
)

// RegisterBrowser adds the headless-browser tool. Only registered when the
// controller actually started, so the model never sees a tool it cannot use.
func RegisterBrowser(m *Manager, ctrl *browser.Controller) {
	m.Register(&funcSkill{
		name: "browser",
		desc: "Opens a URL in a headless browser and extracts the rendered text.",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"read", "screenshot"},
					"description": "Action to perform.",
				},
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to visit.",
				},
			},
			"required": []string{"action", "url"},
		},
		run: func(ctx context.Context, args map[string]any) (string, error) {
			url := stringArg(args, "url")
			if url == "" {
				return "", fmt.Errorf("url is required")
			}
			switch stringArg(args, "action") {
			case "read":
				text, err := ctrl.ReadPage(ctx, url)
				if err != nil {
					return "", err
				}
				return truncate(text, maxFileOutput), nil
			case "screenshot":
				data, err := ctrl.Screenshot(ctx, url)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Screenshot taken (%d bytes).", len(data)), nil
			default:
				return "", fmt.Errorf("unknown action %q", stringArg(args, "action"))
			}
		},
	})
}
