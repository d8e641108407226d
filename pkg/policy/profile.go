// Package policy holds the sandbox policy: the structural pre-check run over
// raw case text before any classification happens. The check flags only
// structure — prohibited domains and policy-bypass phrasing — and makes no
// moral claims.
//
// The built-in profile can be replaced by a YAML profile on disk, and
// deployments may add CEL deny rules evaluated over the sandbox report.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// Profile is the sandbox configuration.
type Profile struct {
	// ProhibitedDomains are substrings whose presence marks the case text
	// as belonging to a hard-blocked domain.
	ProhibitedDomains []string `yaml:"prohibited_domains"`
	// BypassPhrases mark attempts to talk the system out of its safeguards.
	BypassPhrases []string `yaml:"bypass_phrases"`
	// DenyRules are optional CEL expressions over the sandbox report and
	// case context; any rule evaluating to true blocks the deliberation.
	DenyRules []string `yaml:"deny_rules"`
}

// Default returns the built-in profile.
func Default() *Profile {
	return &Profile{
		ProhibitedDomains: []string{"bioweapons", "terrorism", "genocide"},
		BypassPhrases:     []string{"ignore safeguards", "override", "bypass"},
	}
}

// Load reads a profile from a YAML file. Missing lists fall back to the
// built-in defaults; an empty list in the file is honored as empty.
func Load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse policy profile %s: %w", path, err)
	}
	def := Default()
	if p.ProhibitedDomains == nil {
		p.ProhibitedDomains = def.ProhibitedDomains
	}
	if p.BypassPhrases == nil {
		p.BypassPhrases = def.BypassPhrases
	}
	return &p, nil
}

// Analyze runs the structural pre-check over case text. Matching is
// case-insensitive substring matching; the first prohibited domain found
// wins. Independent of moral content by construction.
func (p *Profile) Analyze(text string) contracts.SandboxReport {
	lower := strings.ToLower(text)

	report := contracts.SandboxReport{Domain: "general"}
	for _, d := range p.ProhibitedDomains {
		if strings.Contains(lower, strings.ToLower(d)) {
			report.Domain = d
			report.DomainProhibited = true
			break
		}
	}
	for _, phrase := range p.BypassPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			report.BypassAttempt = true
			break
		}
	}
	return report
}
