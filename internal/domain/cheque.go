package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Code is a bot-specific cheque code, the argument of the bot's /start command
type Code string

// Outcome is the classification of a bot reply
type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomeAlreadyUsed
	OutcomeRedeemed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedeemed:
		return "redeemed"
	case OutcomeAlreadyUsed:
		return "already_used"
	default:
		return "unrecognized"
	}
}

// ParseOutcome is the inverse of Outcome.String
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "redeemed", "success":
		return OutcomeRedeemed, nil
	case "already_used", "already_redeemed":
		return OutcomeAlreadyUsed, nil
	case "unrecognized", "unknown":
		return OutcomeUnrecognized, nil
	}
	return OutcomeUnrecognized, fmt.Errorf("unknown outcome %q", s)
}

// Result is the value obtained from a redeemed cheque
type Result struct {
	BTC float64 `json:"btc"`
	RUB float64 `json:"rub"`
}

// Reply is a classified bot answer. BTC is set only for OutcomeRedeemed.
type Reply struct {
	Outcome Outcome
	BTC     float64
	Text    string
}

// ReplyRule maps a literal found in a bot reply to an outcome
type ReplyRule struct {
	Substring string
	Outcome   Outcome
}

// BotProfile describes one cheque bot: where to send the code and how to read its answer
type BotProfile struct {
	Name       string
	Title      string
	Handle     string
	LinkMarker string
	CodePrefix string
	Rules      []ReplyRule
}

// Command returns the text sent to the bot to activate code
func (p BotProfile) Command(code Code) string {
	return "/start " + string(code)
}

var amountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Classify matches text against the profile rules in order, first match wins.
// A success reply that carries no amount is unrecognized.
func (p BotProfile) Classify(text string) Reply {
	reply := Reply{Outcome: OutcomeUnrecognized, Text: text}
	for _, rule := range p.Rules {
		if rule.Substring == "" || !strings.Contains(text, rule.Substring) {
			continue
		}
		if rule.Outcome != OutcomeRedeemed {
			reply.Outcome = rule.Outcome
			return reply
		}
		amount, ok := ParseAmount(text)
		if !ok {
			return reply
		}
		reply.Outcome = OutcomeRedeemed
		reply.BTC = amount
		return reply
	}
	return reply
}

// ParseAmount returns the first number found in text
func ParseAmount(text string) (float64, bool) {
	m := amountPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtractCode returns the bot-specific code from a deep link of this profile.
// Input that is not a link of this profile is returned unchanged.
func (p BotProfile) ExtractCode(raw string) Code {
	if !p.IsLink(raw) {
		return Code(raw)
	}
	if token := prefixToken(raw, p.CodePrefix); token != "" {
		return Code(token)
	}
	if v := startParam(raw); v != "" {
		return Code(v)
	}
	return Code(raw)
}

// IsLink reports whether raw contains this profile's deep link marker
func (p BotProfile) IsLink(raw string) bool {
	if p.LinkMarker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(raw), strings.ToLower(p.LinkMarker))
}

// prefixToken returns the first whitespace-free token that starts with prefix
// at a word boundary and has at least one byte after it
func prefixToken(raw, prefix string) string {
	if prefix == "" {
		return ""
	}
	for from := 0; from < len(raw); {
		i := strings.Index(raw[from:], prefix)
		if i < 0 {
			return ""
		}
		start := from + i
		from = start + 1
		if start > 0 && isWordByte(raw[start-1]) {
			continue
		}
		end := len(raw)
		if j := strings.IndexAny(raw[start:], " \t\n\f\r"); j >= 0 {
			end = start + j
		}
		if end > start+len(prefix) {
			return raw[start:end]
		}
	}
	return ""
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func startParam(raw string) string {
	for _, field := range strings.Fields(raw) {
		i := strings.Index(field, "?")
		if i < 0 {
			continue
		}
		q, err := url.ParseQuery(field[i+1:])
		if err != nil {
			continue
		}
		if v := q.Get("start"); v != "" {
			return v
		}
	}
	return ""
}
