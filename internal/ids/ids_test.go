package ids_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
)

func TestNewAndValidateRoundTrip(t *testing.T) {
	id := ids.New(ids.PrefixTask)
	require.True(t, len(id) > len(ids.PrefixTask))
	require.NoError(t, ids.Validate(id, ids.PrefixTask))
	require.Error(t, ids.Validate(id, ids.PrefixEvent))
}

func TestNewIsTimeSortable(t *testing.T) {
	a := ids.New(ids.PrefixTask)
	b := ids.New(ids.PrefixTask)
	require.True(t, a < b, "ids minted in sequence must sort lexicographically: %q, %q", a, b)
}

func TestValidateRejectsMalformedIDs(t *testing.T) {
	cases := []string{
		"",
		"task_short",
		"event_01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"task_01arz3ndektsv4rrffq69g5fav",
	}
	for _, c := range cases {
		require.Error(t, ids.Validate(c, ids.PrefixTask), "expected %q to be invalid", c)
	}
}

func TestTimestampExtractsCreationTime(t *testing.T) {
	id := ids.New(ids.PrefixEvent)
	ts, err := ids.Timestamp(id)
	require.NoError(t, err)
	require.False(t, ts.IsZero())
}

func TestValidateActor(t *testing.T) {
	for _, good := range []string{"human:alice", "agent:claude", "team:platform"} {
		require.NoError(t, ids.ValidateActor(good))
	}
	for _, bad := range []string{"", "alice", "robot:bob", "human:"} {
		err := ids.ValidateActor(bad)
		require.Error(t, err)
		require.True(t, errs.OfCode(err, errs.InvalidActor))
	}
}

func TestShortIDFormatAndParse(t *testing.T) {
	s, err := ids.ShortID("LAT", "", 7)
	require.NoError(t, err)
	require.Equal(t, "LAT-7", s)

	proj, sub, seq, err := ids.ParseShortID(s)
	require.NoError(t, err)
	require.Equal(t, "LAT", proj)
	require.Equal(t, "", sub)
	require.Equal(t, uint64(7), seq)

	s2, err := ids.ShortID("LAT", "SUB", 3)
	require.NoError(t, err)
	require.Equal(t, "LAT-SUB-3", s2)
	proj, sub, seq, err = ids.ParseShortID(s2)
	require.NoError(t, err)
	require.Equal(t, "LAT", proj)
	require.Equal(t, "SUB", sub)
	require.Equal(t, uint64(3), seq)
}

func TestShortIDRejectsInvalidInputs(t *testing.T) {
	_, err := ids.ShortID("lat", "", 1)
	require.Error(t, err)
	_, err = ids.ShortID("LAT", "", 0)
	require.Error(t, err)
}

func TestExtractShortIDsRespectsWordBoundaries(t *testing.T) {
	text := "see LAT-4 and LAT-42 but not XLAT-4Y or lat-4z"
	got := ids.ExtractShortIDs(text, "LAT")
	require.Equal(t, []string{"LAT-4", "LAT-42"}, got)
}

func TestExtractShortIDsEmptyProjectCode(t *testing.T) {
	require.Nil(t, ids.ExtractShortIDs("LAT-4", ""))
}
