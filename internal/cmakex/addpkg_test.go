package cmakex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmakex/cmakex/internal/depscript"
)

func TestRequestFromAddPkgCallFull(t *testing.T) {
	call := depscript.AddPkgCall{
		Name: "fmt",
		Args: []string{
			"GIT_URL", "https://github.com/fmtlib/fmt.git",
			"GIT_TAG", "9.1.0",
			"SOURCE_DIR", "sub/fmt",
			"CMAKE_ARGS", "-DFMT_TEST=OFF", "-DFMT_DOC=OFF",
			"CONFIGS", "Debug", "Release",
			"DEPENDS", "zlib",
		},
	}

	req, err := requestFromAddPkgCall(call)
	require.NoError(t, err)
	require.Equal(t, "fmt", req.Name)
	require.Equal(t, "https://github.com/fmtlib/fmt.git", req.URL)
	require.Equal(t, "9.1.0", req.Ref)
	require.Equal(t, "sub/fmt", req.SourceSubPath)
	require.Equal(t, []string{"-DFMT_TEST=OFF", "-DFMT_DOC=OFF"}, req.ConfigureArgs)
	require.Equal(t, []string{"Debug", "Release"}, req.Configs)
	require.Equal(t, []string{"zlib"}, req.Dependencies)
	require.True(t, req.Shallow)
}

func TestRequestFromAddPkgCallFullCloneDisablesShallow(t *testing.T) {
	call := depscript.AddPkgCall{Name: "fmt", Args: []string{"FULL_CLONE", "GIT_REPOSITORY", "https://example.com/fmt.git"}}
	req, err := requestFromAddPkgCall(call)
	require.NoError(t, err)
	require.False(t, req.Shallow)
	require.Equal(t, "https://example.com/fmt.git", req.URL)
}

func TestRequestFromAddPkgCallRejectsBothURLKeywords(t *testing.T) {
	call := depscript.AddPkgCall{Name: "fmt", Args: []string{"GIT_URL", "a", "GIT_REPOSITORY", "b"}}
	_, err := requestFromAddPkgCall(call)
	require.Error(t, err)
}

func TestRequestFromAddPkgCallNameOnly(t *testing.T) {
	call := depscript.AddPkgCall{Name: "zlib", Args: nil}
	req, err := requestFromAddPkgCall(call)
	require.NoError(t, err)
	require.True(t, req.NameOnly())
}

func TestParseAddPkgArgsRejectsLeadingPositional(t *testing.T) {
	_, err := parseAddPkgArgs([]string{"stray-value"})
	require.Error(t, err)
}

func TestParseAddPkgArgsRejectsDuplicateSingleValue(t *testing.T) {
	_, err := parseAddPkgArgs([]string{"GIT_TAG", "a", "GIT_TAG", "b"})
	require.Error(t, err)
}
