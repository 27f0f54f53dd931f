package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUnknownPluginIsError(t *testing.T) {
	r := NewRegistry(t.TempDir())
	_, _, err := r.Resolve("com.example.missing")
	require.Error(t, err)
}

func TestScanOfEmptyDirsIsNoop(t *testing.T) {
	r := NewRegistry(t.TempDir(), t.TempDir())
	require.NoError(t, r.Scan())
	require.Empty(t, r.List())
}
