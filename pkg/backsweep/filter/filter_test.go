package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

func TestExcluder(t *testing.T) {
	e, err := NewExcluder(".DS_Store", "*.tmp", "cache/**", "  ")
	require.NoError(t, err)
	assert.Equal(t, []string{".DS_Store", "*.tmp", "cache/**"}, e.Patterns())

	tests := []struct {
		rel, name string
		want      bool
	}{
		{"photos/.DS_Store", ".DS_Store", true},
		{"a/b/scratch.tmp", "scratch.tmp", true},
		{"cache/x/y.bin", "y.bin", true},
		{"photos/cache/y.bin", "y.bin", false},
		{"photos/img.jpg", "img.jpg", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Excluded(tt.rel, tt.name), tt.rel)
	}
}

func TestExcluder_Nil(t *testing.T) {
	var e *Excluder
	assert.False(t, e.Excluded("a", "a"))
	assert.Nil(t, e.Patterns())
}

func TestExcluder_InvalidPattern(t *testing.T) {
	_, err := NewExcluder("[unterminated")
	assert.Error(t, err)
	assert.Panics(t, func() { MustExcluder("[unterminated") })
}

func sampleRecords() []types.FileRecord {
	return []types.FileRecord{
		{OriginPath: "/o/a.txt", Kind: types.ExactMatch, Action: types.Delete, Size: 10, Matches: 2},
		{OriginPath: "/o/a.txt", Kind: types.AlternativeMatch, Action: types.Skip, Rank: 1},
		{OriginPath: "/o/b.txt", Kind: types.NameMatch, Action: types.CopyAsVersioned, Size: 2000},
		{OriginPath: "/o/raw/c.raw", Kind: types.SizeMatch, Action: types.CopyAsVersioned, Size: 5000},
		{OriginPath: "/o/d.txt", Kind: types.NoMatch, Action: types.Move, Size: 1},
	}
}

func TestSelector_Default(t *testing.T) {
	s, err := NewSelector()
	require.NoError(t, err)

	records := sampleRecords()
	n := s.Apply(records)
	assert.Equal(t, 4, n)
	assert.False(t, records[1].Selected, "skip records are never selected")
}

func TestSelector_Options(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []bool
	}{
		{
			name: "kinds",
			opts: []Option{WithKinds(types.ExactMatch, types.NoMatch)},
			want: []bool{true, false, false, false, true},
		},
		{
			name: "actions",
			opts: []Option{WithActions(types.CopyAsVersioned)},
			want: []bool{false, false, true, true, false},
		},
		{
			name: "min size",
			opts: []Option{WithMinSize(1000)},
			want: []bool{false, false, true, true, false},
		},
		{
			name: "include",
			opts: []Option{WithInclude("/o/raw/*")},
			want: []bool{false, false, false, true, false},
		},
		{
			name: "exclude",
			opts: []Option{WithExclude("/o/*.txt")},
			want: []bool{false, false, false, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSelector(tt.opts...)
			require.NoError(t, err)

			records := sampleRecords()
			s.Apply(records)
			for i, rec := range records {
				assert.Equal(t, tt.want[i], rec.Selected, "record %d (%s)", i, rec.OriginPath)
			}
		})
	}
}

func TestNewSelector_InvalidPattern(t *testing.T) {
	_, err := NewSelector(WithInclude("[bad"))
	assert.Error(t, err)
}

func TestWithMinSize_Negative(t *testing.T) {
	s, err := NewSelector(WithMinSize(-5))
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.MinSize)
}

func TestSelectAllDeselectAll(t *testing.T) {
	records := sampleRecords()

	assert.Equal(t, 4, SelectAll(records))
	assert.False(t, records[1].Selected)

	DeselectAll(records)
	for _, rec := range records {
		assert.False(t, rec.Selected)
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("exact, name,exact")
	require.NoError(t, err)
	assert.Equal(t, []types.MatchKind{types.ExactMatch, types.NameMatch}, kinds)

	kinds, err = ParseKinds("all")
	require.NoError(t, err)
	assert.Len(t, kinds, 4)

	kinds, err = ParseKinds("")
	require.NoError(t, err)
	assert.Empty(t, kinds)

	_, err = ParseKinds("alternative")
	assert.ErrorIs(t, err, types.ErrInvalidMatchKind)

	_, err = ParseKinds("fuzzy")
	assert.Error(t, err)
}
