package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripKeepsNanoseconds(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 789, time.FixedZone("x", 3600)),
		ID:        uuid.New(),
	}
	token := EncodeCursor(want)
	require.NotContains(t, token, "=")

	got, err := ParseCursor(token)
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(want.CreatedAt))
	require.Equal(t, want.ID, got.ID)
}

func TestParseCursor(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, got)

	for _, token := range []string{"%%%", "bm9jb2xvbg", "YWJjOjEyMw"} {
		_, err := ParseCursor(token)
		require.Error(t, err, token)
	}
}

func TestSplitAndLimits(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+5))
	require.Equal(t, 3, FetchLimit(2))

	page, more := Split([]int{1, 2, 3}, 2)
	require.Equal(t, []int{1, 2}, page)
	require.True(t, more)

	page, more = Split([]int{1, 2}, 2)
	require.Equal(t, []int{1, 2}, page)
	require.False(t, more)
}
