package rules

import (
	"errors"
	"fmt"
	"sort"
)

// ErrRuleNotFound is returned by Directory.Get for unknown rule names.
// Callers only request names they previously matched, so hitting this means
// the directory and the matcher disagree.
var ErrRuleNotFound = errors.New("rule not found")

// Directory is a read-only lookup of compiled rules by name. It is loaded
// once at startup and safe to share across concurrent account runs.
type Directory struct {
	rules map[string]*Rule
}

// NewDirectory compiles the given rules and indexes them by name. It fails
// on the first rule with an invalid pattern or a duplicate name.
func NewDirectory(list []*Rule) (*Directory, error) {
	byName := make(map[string]*Rule, len(list))
	for _, rule := range list {
		if err := rule.Compile(); err != nil {
			return nil, err
		}
		if _, ok := byName[rule.Name]; ok {
			return nil, fmt.Errorf("duplicate rule name %q", rule.Name)
		}
		byName[rule.Name] = rule
	}
	return &Directory{rules: byName}, nil
}

// Get returns the rule with the given name.
func (d *Directory) Get(name string) (*Rule, error) {
	rule, ok := d.rules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	return rule, nil
}

// All returns every rule in name order.
func (d *Directory) All() []*Rule {
	list := make([]*Rule, 0, len(d.rules))
	for _, rule := range d.rules {
		list = append(list, rule)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Len returns the number of rules in the directory.
func (d *Directory) Len() int {
	return len(d.rules)
}
