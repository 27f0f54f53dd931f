package audiotransport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotResourceNamesAreDistinctAndStable(t *testing.T) {
	a := regionName(7)
	b := requestName(7)
	c := responseName(7)

	require.NotEqual(t, a, b)
	require.NotEqual(t, b, c)
	require.NotEqual(t, a, c)

	require.Equal(t, a, regionName(7))
	require.NotEqual(t, a, regionName(8))
}
