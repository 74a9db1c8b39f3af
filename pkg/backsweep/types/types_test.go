package types

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "bytes with B suffix", input: "512B", want: 512},
		{name: "kilobytes", input: "100K", want: 100 * KiB},
		{name: "kilobytes with iB", input: "100KiB", want: 100 * KiB},
		{name: "megabytes with B", input: "10MB", want: 10 * MiB},
		{name: "gigabytes lowercase", input: "2g", want: 2 * GiB},
		{name: "terabytes", input: "1TiB", want: TiB},
		{name: "decimal values truncated", input: "1.5G", want: 1610612736},
		{name: "surrounding whitespace", input: "  100M  ", want: 100 * MiB},

		{name: "empty string", input: "", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-100M", wantErr: true},
		{name: "suffix only", input: "M", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSize_ErrorTypes(t *testing.T) {
	_, err := ParseSize("-1K")
	assert.ErrorIs(t, err, ErrNegativeSize)

	_, err = ParseSize("lots")
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{KiB, "1.0 KiB"},
		{1536 * KiB, "1.5 MiB"},
		{GiB, "1.0 GiB"},
		{-5, "0 B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes))
	}
}

func TestMatchKind_Labels(t *testing.T) {
	assert.Equal(t, "Exact match", ExactMatch.Label())
	assert.Equal(t, "Name match", NameMatch.Label())
	assert.Equal(t, "Size match", SizeMatch.Label())
	assert.Equal(t, "No match", NoMatch.Label())
	assert.Equal(t, "ExactMatch", ExactMatch.String())
	assert.Equal(t, "Unknown", MatchKind(42).String())
}

func TestMatchKind_Priority(t *testing.T) {
	assert.Less(t, ExactMatch.Priority(), SizeMatch.Priority())
	assert.Less(t, SizeMatch.Priority(), NameMatch.Priority())
}

func TestParseMatchKind(t *testing.T) {
	tests := []struct {
		input string
		want  MatchKind
	}{
		{"exact", ExactMatch},
		{"Name", NameMatch},
		{" size ", SizeMatch},
		{"unmatched", NoMatch},
		{"AlternativeMatch", AlternativeMatch},
	}
	for _, tt := range tests {
		got, err := ParseMatchKind(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMatchKind("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidMatchKind)
}

func TestMatchKind_TextRoundTrip(t *testing.T) {
	for _, k := range []MatchKind{NoMatch, ExactMatch, NameMatch, SizeMatch, AlternativeMatch} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got MatchKind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "Delete", Delete.String())
	assert.Equal(t, "Copy as _v2", CopyAsVersioned.String())
	assert.Equal(t, "Move", Move.String())
	assert.Equal(t, "Skip", Skip.String())

	var a Action
	require.NoError(t, a.UnmarshalText([]byte("Copy as _v2")))
	assert.Equal(t, CopyAsVersioned, a)
	assert.Error(t, a.UnmarshalText([]byte("shred")))
}

func TestFileRecord_Label(t *testing.T) {
	tests := []struct {
		name   string
		record FileRecord
		want   string
	}{
		{"single exact", FileRecord{Kind: ExactMatch, Matches: 1}, "Exact match"},
		{"multiple size", FileRecord{Kind: SizeMatch, Matches: 3}, "Size match (multiple matches: 3)"},
		{"alternative", FileRecord{Kind: AlternativeMatch, Rank: 2}, "Alternative match #2"},
		{"no match", FileRecord{Kind: NoMatch}, "No match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Label())
		})
	}
}

func TestScanResult_Counts(t *testing.T) {
	r := &ScanResult{Records: []FileRecord{
		{Kind: ExactMatch, Action: Delete, Selected: true, Matches: 2},
		{Kind: AlternativeMatch, Action: Skip, Rank: 1},
		{Kind: NoMatch, Action: Move},
		{Kind: NameMatch, Action: CopyAsVersioned, Selected: true},
	}}

	kinds := r.CountByKind()
	assert.Equal(t, 1, kinds[ExactMatch])
	assert.Equal(t, 1, kinds[AlternativeMatch])
	assert.Equal(t, 1, kinds[NoMatch])

	actions := r.CountByAction()
	assert.Equal(t, 1, actions[Delete])
	assert.Equal(t, 1, actions[Skip])

	selected := r.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, NameMatch, selected[1].Kind)
}

func TestScanProgress_Percent(t *testing.T) {
	assert.InDelta(t, 0.0, ScanProgress{}.Percent(), 0.001)
	assert.InDelta(t, 50.0, ScanProgress{Classified: 5, Total: 10}.Percent(), 0.001)
}

func TestErrors_Unwrap(t *testing.T) {
	cfgErr := &ConfigError{Role: "origin", Path: "/nope", Err: ErrInvalidRoot}
	assert.ErrorIs(t, cfgErr, ErrInvalidRoot)
	assert.Contains(t, cfgErr.Error(), "origin root")

	hashErr := &HashError{Path: "/a", Err: fs.ErrNotExist}
	assert.ErrorIs(t, hashErr, fs.ErrNotExist)

	var fileErr *FileError
	wrapped := errors.Join(errors.New("other"), &FileError{Op: "move", Path: "/b", Err: fs.ErrPermission})
	require.ErrorAs(t, wrapped, &fileErr)
	assert.Equal(t, "move", fileErr.Op)
}
