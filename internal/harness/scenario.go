package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance test case.
type Scenario struct {
	// Name uniquely identifies this scenario; it doubles as the golden
	// file name and the audit channel name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Seed overrides the LFSR seed (default engine.DefaultSeed).
	Seed uint32 `yaml:"seed,omitempty"`

	// CacheCapacity overrides the replay cache bound (default 256).
	CacheCapacity int `yaml:"cache_capacity,omitempty"`

	// Steps is the scripted operation sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate final engine and audit-log state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted operation. Exactly one field may be set.
type Step struct {
	Submit     *SubmitStep     `yaml:"submit,omitempty"`
	IssueNonce *IssueNonceStep `yaml:"issue_nonce,omitempty"`
	Advance    int             `yaml:"advance,omitempty"`
	Lock       bool            `yaml:"lock,omitempty"`
	ResetCache bool            `yaml:"reset_cache,omitempty"`
	ResetState bool            `yaml:"reset_state,omitempty"`
}

// SubmitStep drives one candidate through submit/poll/acknowledge.
type SubmitStep struct {
	Counter uint32 `yaml:"counter"`
	Nonce   uint32 `yaml:"nonce"`

	// Expect, when present, is checked against the verdict.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected verdict for a submission.
type Expect struct {
	Valid      bool `yaml:"valid"`
	BadCounter bool `yaml:"bad_counter"`
	BadNonce   bool `yaml:"bad_nonce"`
}

// IssueNonceStep draws outbound nonces.
type IssueNonceStep struct {
	Count int `yaml:"count"`

	// ExpectDistinct fails the scenario if any draw repeats.
	ExpectDistinct bool `yaml:"expect_distinct,omitempty"`
}

// Assertion validates final state after all steps ran.
//
// Types:
//   - "counter_value":  engine counter equals Value
//   - "counter_locked": engine counter lock state equals Value (0/1)
//   - "cache_len":      replay cache holds Value entries
//   - "rejected_count": audit log holds Value rejections
type Assertion struct {
	Type  string `yaml:"type"`
	Value int64  `yaml:"value"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := s.check(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by filename
// for stable run order.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) check() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("no steps")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Submit != nil {
			set++
		}
		if step.IssueNonce != nil {
			set++
		}
		if step.Advance > 0 {
			set++
		}
		if step.Lock {
			set++
		}
		if step.ResetCache {
			set++
		}
		if step.ResetState {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d: exactly one operation required, found %d", i+1, set)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case "counter_value", "counter_locked", "cache_len", "rejected_count":
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}
	return nil
}
