package rank

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPosition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		position int
		want     string
	}{
		{name: "first result", position: 1, want: "Page 1 Rank 1"},
		{name: "last of first page", position: 10, want: "Page 1 Rank 10"},
		{name: "first of second page", position: 11, want: "Page 2 Rank 1"},
		{name: "mid page", position: 13, want: "Page 2 Rank 3"},
		{name: "last tracked", position: 100, want: "Page 10 Rank 10"},
		{name: "zero is not a position", position: 0, want: LabelNotRanked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, FormatPosition(tc.position))
		})
	}
}

func TestFormatResult(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Page 1 Rank 5", FormatResult(Result{Position: 5, Found: true}))
	require.Equal(t, LabelNotRanked, FormatResult(Result{}))
	require.Equal(t, LabelError, FormatResult(Result{Failed: true}))
	// Failed wins even if a stale position is attached.
	require.Equal(t, LabelError, FormatResult(Result{Position: 3, Found: true, Failed: true}))
}

func TestParseLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		text   string
		want   int
		parsed bool
	}{
		{name: "first page", text: "Page 1 Rank 1", want: 1, parsed: true},
		{name: "second page recombines", text: "Page 2 Rank 3", want: 13, parsed: true},
		{name: "tolerates marker", text: "Page 1 Rank 5 " + ImprovementMarker, want: 5, parsed: true},
		{name: "not ranked", text: LabelNotRanked},
		{name: "error", text: LabelError},
		{name: "blank", text: ""},
		{name: "free text", text: "checking"},
		{name: "zero page rejected", text: "Page 0 Rank 5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseLabel(tc.text)
			require.Equal(t, tc.parsed, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	t.Parallel()

	for pos := 1; pos <= 100; pos++ {
		got, ok := ParseLabel(FormatPosition(pos))
		require.True(t, ok)
		require.Equal(t, pos, got)
	}
}
