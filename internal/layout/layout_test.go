package layout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicPaths(t *testing.T) {
	l := New("/proj/build")

	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib"), l.CloneDir("zlib"))
	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib-install"), l.InstallDir("zlib"))
	require.Equal(t, filepath.Join("/proj/build", "_deps-install"), l.SharedInstallPrefix())
	require.Equal(t, filepath.Join("/proj/build", "_cmakex", "installed"), l.InstalledDir())
	require.Equal(t, filepath.Join("/proj/build", "_cmakex", "log"), l.LogDir())
	require.Equal(t, filepath.Join("/proj/build", "_cmakex", "tmp"), l.TmpDir())
}

func TestBinaryDirSingleConfigPerConfigRequested(t *testing.T) {
	l := New("/proj/build")

	got := l.BinaryDir("zlib", "Debug", true, "Ninja")
	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib-build", "Debug"), got)

	got = l.BinaryDir("zlib", "", true, "Ninja")
	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib-build", NoConfig), got)
}

func TestBinaryDirSingleConfigNotRequested(t *testing.T) {
	l := New("/proj/build")
	got := l.BinaryDir("zlib", "Debug", false, "Ninja")
	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib-build"), got)
}

func TestBinaryDirMultiConfigIgnoresRequest(t *testing.T) {
	l := New("/proj/build")
	got := l.BinaryDir("zlib", "Debug", true, "Xcode")
	require.Equal(t, filepath.Join("/proj/build", "_deps", "zlib-build"), got)
}

func TestLowercaseConfigKey(t *testing.T) {
	require.Equal(t, "noconfig", LowercaseConfigKey(""))
	require.Equal(t, "debug", LowercaseConfigKey("Debug"))
}
