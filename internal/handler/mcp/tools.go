package mcp

import (
	"context"
	"fmt"

	"cheque-bot/internal/usecase"

	"github.com/goccy/go-json"
)

// Tool describes one MCP tool
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Tools returns the tools exposed over MCP
func Tools() []Tool {
	return []Tool{
		{
			Name:        "activate_cheque",
			Description: "Activate a crypto cheque. Pass a deep link (https://t.me/BTC_CHANGE_BOT?start=c_...) or a bare code together with the profile name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cheque": map[string]interface{}{
						"type":        "string",
						"description": "Deep link or bare cheque code",
					},
					"profile": map[string]interface{}{
						"type":        "string",
						"description": "Bot profile name (banker, getwallet). Optional for deep links.",
					},
				},
				"required": []string{"cheque"},
			},
		},
		{
			Name:        "to_rub",
			Description: "Convert a BTC amount to RUB at the current 15 minute ticker price",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"btc_amount": map[string]interface{}{
						"type":        "number",
						"description": "Amount in BTC",
					},
				},
				"required": []string{"btc_amount"},
			},
		},
		{
			Name:        "list_profiles",
			Description: "List the supported cheque bots",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "redemption_history",
			Description: "Show the latest redemption attempts, newest first",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "number",
						"description": "How many entries to return (default 10)",
					},
				},
			},
		},
	}
}

// CallTool executes the named tool and returns its JSON text result
func CallTool(ctx context.Context, uc usecase.RedeemUsecase, name string, arguments map[string]interface{}) (string, error) {
	switch name {
	case "activate_cheque":
		cheque := getString(arguments, "cheque")
		if cheque == "" {
			return "", fmt.Errorf("cheque is required")
		}
		profile := getString(arguments, "profile")

		var err error
		var result interface{}
		if profile == "" {
			result, err = uc.ActivateAuto(ctx, cheque)
		} else {
			result, err = uc.Activate(ctx, profile, cheque)
		}
		if err != nil {
			return "", err
		}
		return toJSON(result), nil

	case "to_rub":
		amount, ok := arguments["btc_amount"].(float64)
		if !ok {
			return "", fmt.Errorf("btc_amount must be a number")
		}
		rub, err := uc.ToRub(ctx, amount)
		if err != nil {
			return "", err
		}
		return toJSON(map[string]float64{"btc": amount, "rub": rub}), nil

	case "list_profiles":
		profiles := uc.Profiles()
		result := make([]map[string]string, len(profiles))
		for i, p := range profiles {
			result[i] = map[string]string{
				"name":   p.Name,
				"title":  p.Title,
				"handle": "@" + p.Handle,
			}
		}
		return toJSON(result), nil

	case "redemption_history":
		limit := getInt(arguments, "limit")
		if limit <= 0 {
			limit = 10
		}
		entries, err := uc.History(ctx, limit)
		if err != nil {
			return "", err
		}
		return toJSON(entries), nil

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// Helper functions
func toJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
