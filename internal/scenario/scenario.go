// ABOUTME: YAML answer scripts for the fake answer-job backend
// ABOUTME: Maps incoming messages to scripted answers, delays and failures

// Package scenario loads the answer scripts that drive fake-answerd.
//
// A script is a list of rules matched against the incoming message by
// case-insensitive substring, first match wins, plus a default rule.
// Each rule says how many in_progress polls to serve before the
// answer, and can instead fail the job or stall forever (useful for
// exercising the client's watchdog).
package scenario

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule describes how the fake backend answers one class of message.
type Rule struct {
	// Match is a case-insensitive substring of the incoming message.
	// Empty matches nothing (only valid for the default rule).
	Match string `yaml:"match"`

	// Answer is the text served once the job "finishes".
	Answer string `yaml:"answer"`

	// PollsUntilReady is how many in_progress responses precede the
	// answer.
	PollsUntilReady int `yaml:"polls_until_ready"`

	// Fail serves an error payload instead of an answer.
	Fail        bool   `yaml:"fail"`
	FailMessage string `yaml:"fail_message"`

	// Stall keeps answering in_progress forever.
	Stall bool `yaml:"stall"`

	AnswerDelay    time.Duration `yaml:"-"`
	AnswerDelayRaw string        `yaml:"answer_delay"`
}

// Script is a full fake-backend scenario.
type Script struct {
	Default Rule   `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// DefaultScript echoes the question back after two polls.
func DefaultScript() *Script {
	return &Script{
		Default: Rule{
			Answer:          "You asked: %s",
			PollsUntilReady: 2,
		},
	}
}

// Load reads a script from a YAML file. Environment variables in
// ${VAR} form are expanded before parsing.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var script Script
	if err := yaml.Unmarshal([]byte(expanded), &script); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}

	if err := script.parseDurations(); err != nil {
		return nil, err
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario: %w", err)
	}
	return &script, nil
}

func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks every rule serves something.
func (s *Script) Validate() error {
	for i, r := range s.Rules {
		if r.Match == "" {
			return fmt.Errorf("rules[%d]: match is required", i)
		}
		if r.Answer == "" && !r.Fail && !r.Stall {
			return fmt.Errorf("rules[%d] (%q): needs an answer, fail or stall", i, r.Match)
		}
	}
	if s.Default.Answer == "" && !s.Default.Fail && !s.Default.Stall {
		return fmt.Errorf("default rule needs an answer, fail or stall")
	}
	return nil
}

func (s *Script) parseDurations() error {
	rules := append([]Rule{s.Default}, s.Rules...)
	for i := range rules {
		if rules[i].AnswerDelayRaw == "" {
			continue
		}
		d, err := time.ParseDuration(rules[i].AnswerDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing answer_delay %q: %w", rules[i].AnswerDelayRaw, err)
		}
		rules[i].AnswerDelay = d
	}
	s.Default = rules[0]
	copy(s.Rules, rules[1:])
	return nil
}

// MatchMessage returns the first rule whose substring appears in the
// message, or the default rule.
func (s *Script) MatchMessage(msg string) Rule {
	lower := strings.ToLower(msg)
	for _, r := range s.Rules {
		if r.Match != "" && strings.Contains(lower, strings.ToLower(r.Match)) {
			return r
		}
	}
	return s.Default
}

// RenderAnswer fills the rule's answer template. A single %s expands
// to the original message.
func (r Rule) RenderAnswer(msg string) string {
	if strings.Contains(r.Answer, "%s") {
		return fmt.Sprintf(r.Answer, msg)
	}
	return r.Answer
}
