package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/synergy"
)

//go:embed default_rules.yaml
var defaultRules []byte

// RulesFile is the YAML document holding the increment tiers and the synergy
// tables.
type RulesFile struct {
	Increments struct {
		Tiers   []engine.Tier `yaml:"tiers"`
		MaxStep int64         `yaml:"max_step"`
	} `yaml:"increments"`
	Synergy synergy.Table `yaml:"synergy"`
}

// LoadRules reads the rules file at path, or the embedded default when path
// is empty. ${VAR} references are expanded from the environment.
func LoadRules(path string) (RulesFile, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return RulesFile{}, fmt.Errorf("read rules file: %w", err)
		}
		data = b
	}
	return parseRules(data)
}

func parseRules(data []byte) (RulesFile, error) {
	var rf RulesFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &rf); err != nil {
		return RulesFile{}, fmt.Errorf("parse rules yaml: %w", err)
	}
	var err error
	if rf.Synergy.Positive, err = canonicalKeys(rf.Synergy.Positive); err != nil {
		return RulesFile{}, fmt.Errorf("synergy.positive: %w", err)
	}
	if rf.Synergy.Negative, err = canonicalKeys(rf.Synergy.Negative); err != nil {
		return RulesFile{}, fmt.Errorf("synergy.negative: %w", err)
	}
	return rf, nil
}

// canonicalKeys lowercases every pair key and puts its archetypes in the
// order synergy.Key expects.
func canonicalKeys(in map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(in))
	for k, v := range in {
		a, b, ok := strings.Cut(strings.ToLower(strings.TrimSpace(k)), "-")
		if !ok || a == "" || b == "" || strings.Contains(b, "-") {
			return nil, fmt.Errorf("bad pair key %q", k)
		}
		key := synergy.Key(a, b)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("pair %q listed twice", key)
		}
		out[key] = v
	}
	return out, nil
}
