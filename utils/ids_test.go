package utils

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	t.Parallel()

	id := GenerateID()
	_, err := uuid.Parse(id)
	require.NoError(t, err, "auction id should be a valid UUID")
	require.NotEqual(t, id, GenerateID())
}

func TestGenerateBidID_SortsInGenerationOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ids := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		ids = append(ids, GenerateBidID(now))
	}

	require.True(t, sort.StringsAreSorted(ids), "ids minted in the same millisecond should be monotonic")

	parsed, err := ulid.Parse(ids[0])
	require.NoError(t, err)
	require.Equal(t, ulid.Timestamp(now), parsed.Time())
}
