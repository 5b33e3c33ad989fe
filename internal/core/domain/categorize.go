package domain

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed category_rules.yaml
var categoryRulesYAML []byte

type categoryRule struct {
	Category Category `yaml:"category"`
	Hosts    []string `yaml:"hosts"`
	Keywords []string `yaml:"keywords"`
	Suffixes []string `yaml:"suffixes"`
}

var categoryRules = mustLoadCategoryRules()

func mustLoadCategoryRules() []categoryRule {
	var table struct {
		Rules []categoryRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(categoryRulesYAML, &table); err != nil {
		panic(fmt.Sprintf("parse embedded category rules: %v", err))
	}
	if len(table.Rules) == 0 {
		panic("embedded category rules are empty")
	}
	return table.Rules
}

// Categorize maps a URL to exactly one Category using the ordered rule
// table. Matching is case-insensitive on the host portion; anything
// without a parseable host falls through to Others.
func Categorize(rawURL string) Category {
	host := hostOf(rawURL)
	if host == "" {
		return CategoryOthers
	}

	for _, rule := range categoryRules {
		if rule.matches(host) {
			return rule.Category
		}
	}
	return CategoryOthers
}

func (r categoryRule) matches(host string) bool {
	for _, h := range r.Hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	for _, kw := range r.Keywords {
		if strings.Contains(host, kw) {
			return true
		}
	}
	for _, suffix := range r.Suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.ToLower(strings.TrimSpace(rawURL)))
	if err != nil {
		return ""
	}
	return parsed.Host
}
