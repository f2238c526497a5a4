// Package rules holds the parser rule definitions and the in-memory
// directory the pipeline matches messages against.
package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Rule is one extraction rule. From and SubjectFilter select which mail
// references the rule applies to; HTMLFilter excludes messages whose body
// matches it. Payload is forwarded verbatim to the extraction service.
// Rules are immutable once compiled.
type Rule struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	From          string          `json:"from"`
	SubjectFilter string          `json:"subjectFilter"`
	HTMLFilter    string          `json:"htmlFilter"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Version       string          `json:"version"`

	fromRe    *regexp.Regexp
	subjectRe *regexp.Regexp
	htmlRe    *regexp.Regexp
}

// Compile builds the rule's case-insensitive matchers. Patterns are
// comma-separated alternations; an empty HTMLFilter excludes nothing.
// Compile must succeed before the rule is used for matching.
func (r *Rule) Compile() error {
	var err error
	if r.fromRe, err = compilePattern(r.From); err != nil {
		return fmt.Errorf("rule %s: invalid from pattern: %w", r.Name, err)
	}
	if r.subjectRe, err = compilePattern(r.SubjectFilter); err != nil {
		return fmt.Errorf("rule %s: invalid subject pattern: %w", r.Name, err)
	}
	if r.HTMLFilter != "" {
		if r.htmlRe, err = compilePattern(r.HTMLFilter); err != nil {
			return fmt.Errorf("rule %s: invalid html pattern: %w", r.Name, err)
		}
	}
	return nil
}

// MatchesSender reports whether the rule's sender pattern matches the given
// address. Matching is unanchored and case-insensitive.
func (r *Rule) MatchesSender(sender string) bool {
	return r.fromRe.MatchString(sender)
}

// MatchesSubject reports whether the rule's subject pattern matches.
func (r *Rule) MatchesSubject(subject string) bool {
	return r.subjectRe.MatchString(subject)
}

// ExcludesHTML reports whether the rule's body-exclusion pattern matches the
// message body, in which case the rule must be dropped for that message.
func (r *Rule) ExcludesHTML(html string) bool {
	return r.htmlRe != nil && r.htmlRe.MatchString(html)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + strings.ReplaceAll(pattern, ",", "|"))
}
