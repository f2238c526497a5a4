package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectory(t *testing.T) {
	t.Run("compiles rules and indexes them by name", func(t *testing.T) {
		directory, err := NewDirectory([]*Rule{
			{Name: "rule-b", From: "b.example", SubjectFilter: "Order"},
			{Name: "rule-a", From: "a.example", SubjectFilter: "Invoice"},
		})
		require.NoError(t, err)

		rule, err := directory.Get("rule-a")
		require.NoError(t, err)
		assert.Equal(t, "rule-a", rule.Name)

		all := directory.All()
		require.Len(t, all, 2)
		assert.Equal(t, "rule-a", all[0].Name)
		assert.Equal(t, "rule-b", all[1].Name)
	})

	t.Run("fails on invalid pattern", func(t *testing.T) {
		_, err := NewDirectory([]*Rule{
			{Name: "bad", From: "([unclosed", SubjectFilter: "x"},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bad")
	})

	t.Run("fails on duplicate rule name", func(t *testing.T) {
		_, err := NewDirectory([]*Rule{
			{Name: "dup", From: "a", SubjectFilter: "x"},
			{Name: "dup", From: "b", SubjectFilter: "y"},
		})
		assert.Error(t, err)
	})

	t.Run("unknown name returns ErrRuleNotFound", func(t *testing.T) {
		directory, err := NewDirectory(nil)
		require.NoError(t, err)

		_, err = directory.Get("missing")
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})
}

func TestRuleMatching(t *testing.T) {
	rule := &Rule{
		Name:          "rule-shop",
		From:          "shop.example,store.example",
		SubjectFilter: "Order,Receipt",
		HTMLFilter:    "unsubscribe-digest",
	}
	require.NoError(t, rule.Compile())

	t.Run("comma alternation matches either sender", func(t *testing.T) {
		assert.True(t, rule.MatchesSender("billing@shop.example"))
		assert.True(t, rule.MatchesSender("noreply@store.example"))
		assert.False(t, rule.MatchesSender("billing@other.example"))
	})

	t.Run("matching is case-insensitive and unanchored", func(t *testing.T) {
		assert.True(t, rule.MatchesSender("Billing@SHOP.Example"))
		assert.True(t, rule.MatchesSubject("Your ORDER #123"))
		assert.True(t, rule.MatchesSubject("receipt attached"))
		assert.False(t, rule.MatchesSubject("Newsletter"))
	})

	t.Run("html filter excludes matching bodies", func(t *testing.T) {
		assert.True(t, rule.ExcludesHTML("<a href=\"https://x/Unsubscribe-Digest\">"))
		assert.False(t, rule.ExcludesHTML("<p>your order shipped</p>"))
	})

	t.Run("empty html filter excludes nothing", func(t *testing.T) {
		open := &Rule{Name: "open", From: "x", SubjectFilter: "y"}
		require.NoError(t, open.Compile())
		assert.False(t, open.ExcludesHTML("anything at all"))
	})
}
