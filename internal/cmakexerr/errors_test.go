package cmakexerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(ExternalTool, "zlib", "Release", "build", "non-zero exit", errors.New("exit status 2"))
	require.Equal(t, "external-tool error [zlib/Release, build]: non-zero exit: exit status 2", err.Error())
}

func TestErrorMessageNoPackage(t *testing.T) {
	err := Plannerf("", "circular dependency: %s", "A -> B -> A")
	require.Equal(t, "planner error: circular dependency: A -> B -> A", err.Error())
}

func TestIsClassifiesWrapped(t *testing.T) {
	base := Corruptionf("zlib", errors.New("bad toml"), "failed to parse install record")
	wrapped := fmt.Errorf("plan failed: %w", base)

	require.True(t, Is(wrapped, Corruption))
	require.False(t, Is(wrapped, Planner))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Filesystemf(cause, "failed to create directory")
	require.True(t, errors.Is(err, cause))
}
