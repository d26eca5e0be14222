package core_test

import (
	"testing"

	"ocmods/internal/core"
	"ocmods/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Castle Siege", "castle siege"},
		{"  Über-Schloß_2 ", "uber schloß 2"},
		{"Clonk's Café!", "clonks cafe"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, core.NormalizeName(tt.in), tt.in)
	}
}

func TestMatchScore(t *testing.T) {
	assert.Equal(t, 1.0, core.MatchScore("", "anything"))
	assert.Equal(t, 1.0, core.MatchScore("siege", "Castle Siege"))
	assert.Equal(t, 0.0, core.MatchScore("siege", ""))
	assert.Greater(t, core.MatchScore("seige", "Castle Siege"), core.MatchThreshold)
	assert.Less(t, core.MatchScore("zzz", "Castle Siege"), core.MatchThreshold)
}

func TestFilterEntries(t *testing.T) {
	entries := []core.Entry{
		{Record: domain.ModRecord{ID: "1", Title: "Castle Siege", Slug: "castle-siege"}},
		{Record: domain.ModRecord{ID: "2", Title: "Western Pack", Slug: "western"}},
		{Record: domain.ModRecord{ID: "3", Title: "Castel Builder", Slug: "castel-builder"}},
	}

	assert.Len(t, core.FilterEntries(entries, ""), 3)

	got := core.FilterEntries(entries, "castle")
	assert.NotEmpty(t, got)
	assert.Equal(t, "1", got[0].Record.ID, "exact hits first")
	for _, e := range got {
		assert.NotEqual(t, "2", e.Record.ID)
	}

	assert.Empty(t, core.FilterEntries(entries, "qqqq"))
}
