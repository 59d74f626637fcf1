package domain

import "strings"

// Built-in profile names
const (
	ProfileBanker    = "banker"
	ProfileGetWallet = "getwallet"
)

// DefaultProfiles returns the profiles of the supported cheque bots
func DefaultProfiles() []BotProfile {
	return []BotProfile{
		{
			Name:       ProfileBanker,
			Title:      "BTC Banker",
			Handle:     "BTC_CHANGE_BOT",
			LinkMarker: "BTC_CHANGE_BOT?start=",
			CodePrefix: "c_",
			Rules: []ReplyRule{
				{Substring: "Упс, кажется, данный чек успел обналичить кто-то другой 😟", Outcome: OutcomeAlreadyUsed},
				{Substring: "Вы получили", Outcome: OutcomeRedeemed},
			},
		},
		{
			Name:       ProfileGetWallet,
			Title:      "GetWallet",
			Handle:     "Getwallet_bot",
			LinkMarker: "Getwallet_bot?start=",
			CodePrefix: "g_",
			Rules: []ReplyRule{
				{Substring: "😮 Увы, но данный купон не существует", Outcome: OutcomeAlreadyUsed},
				{Substring: "Подарочный код активирован", Outcome: OutcomeRedeemed},
			},
		},
	}
}

// FindProfile looks a profile up by name, case-insensitively
func FindProfile(profiles []BotProfile, name string) (BotProfile, bool) {
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return BotProfile{}, false
}

// DetectProfile returns the profile whose deep link appears in raw
func DetectProfile(profiles []BotProfile, raw string) (BotProfile, bool) {
	for _, p := range profiles {
		if p.IsLink(raw) {
			return p, true
		}
	}
	return BotProfile{}, false
}
