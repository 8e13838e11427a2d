package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMultiConfig(t *testing.T) {
	cases := map[string]bool{
		"Visual Studio 17 2022": true,
		"Xcode":                 true,
		"Ninja Multi-Config":    true,
		"Ninja":                 false,
		"Unix Makefiles":        false,
		"":                      false,
	}
	for gen, want := range cases {
		require.Equal(t, want, IsMultiConfig(gen), gen)
	}
}

func TestNeedsPerConfigBinaryDirs(t *testing.T) {
	require.True(t, NeedsPerConfigBinaryDirs(true, "Ninja"))
	require.False(t, NeedsPerConfigBinaryDirs(false, "Ninja"))
	require.False(t, NeedsPerConfigBinaryDirs(true, "Xcode"))
	require.False(t, NeedsPerConfigBinaryDirs(true, "Visual Studio 17 2022"))
}
