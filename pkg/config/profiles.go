package config

import (
	"fmt"
	"os"
	"strings"

	"cheque-bot/internal/domain"

	"gopkg.in/yaml.v3"
)

type profilesFile struct {
	Profiles []profileEntry `yaml:"profiles"`
}

type profileEntry struct {
	Name       string      `yaml:"name"`
	Title      string      `yaml:"title"`
	Handle     string      `yaml:"handle"`
	LinkMarker string      `yaml:"link_marker"`
	CodePrefix string      `yaml:"code_prefix"`
	Rules      []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Contains string `yaml:"contains"`
	Outcome  string `yaml:"outcome"`
}

// LoadProfiles returns the built-in bot profiles, overridden or extended by
// the entries of the YAML file at path. An empty path yields the defaults.
func LoadProfiles(path string) ([]domain.BotProfile, error) {
	profiles := domain.DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return mergeProfiles(profiles, data)
}

func mergeProfiles(profiles []domain.BotProfile, data []byte) ([]domain.BotProfile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for _, entry := range file.Profiles {
		p, err := entry.toDomain()
		if err != nil {
			return nil, err
		}

		replaced := false
		for i := range profiles {
			if strings.EqualFold(profiles[i].Name, p.Name) {
				profiles[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

func (e profileEntry) toDomain() (domain.BotProfile, error) {
	if e.Name == "" || e.Handle == "" {
		return domain.BotProfile{}, fmt.Errorf("profile requires name and handle")
	}
	if len(e.Rules) == 0 {
		return domain.BotProfile{}, fmt.Errorf("profile %s has no reply rules", e.Name)
	}

	p := domain.BotProfile{
		Name:       e.Name,
		Title:      e.Title,
		Handle:     strings.TrimPrefix(e.Handle, "@"),
		LinkMarker: e.LinkMarker,
		CodePrefix: e.CodePrefix,
	}
	if p.Title == "" {
		p.Title = p.Handle
	}
	if p.LinkMarker == "" {
		p.LinkMarker = p.Handle + "?start="
	}

	for _, r := range e.Rules {
		outcome, err := domain.ParseOutcome(r.Outcome)
		if err != nil {
			return domain.BotProfile{}, fmt.Errorf("profile %s: %w", e.Name, err)
		}
		if r.Contains == "" {
			return domain.BotProfile{}, fmt.Errorf("profile %s: rule for %s has empty text", e.Name, r.Outcome)
		}
		p.Rules = append(p.Rules, domain.ReplyRule{Substring: r.Contains, Outcome: outcome})
	}
	return p, nil
}
