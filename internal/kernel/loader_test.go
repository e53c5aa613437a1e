package kernel

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader returns a loader rooted at a fresh temp dir whose
// OPENCL_KERNEL_PATH is env.
func newTestLoader(t *testing.T, env string) (*Loader, string) {
	t.Helper()

	root := t.TempDir()
	l := NewLoader(Options{
		Root: root,
		Getenv: func(key string) string {
			if key == EnvKernelPath {
				return env
			}
			return ""
		},
	})
	return l, root
}

func TestLoadNoIncludesIsIdentity(t *testing.T) {
	l, root := newTestLoader(t, "")
	content := "#include <stdio.h>\n__kernel void k(__global int *a) { a[0] = 1; }\n"
	writeFile(t, root, "k.cl", content)

	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, content, src.String())
	assert.Equal(t, append([]byte(content), 0), src.Terminated())
	assert.Equal(t, len(content), src.Len())
	assert.Empty(t, src.Includes)
	assert.Equal(t, filepath.Join(root, "k.cl"), src.Path)
}

func TestLoadTrailingDirectiveFragmentIsIdentity(t *testing.T) {
	l, root := newTestLoader(t, "")
	for _, content := range []string{
		"__kernel void k(void) {}\n#  ",
		"__kernel void k(void) {}\n#include \t",
	} {
		writeFile(t, root, "k.cl", content)

		src, err := l.Load("k.cl")
		require.NoError(t, err, "%q", content)
		assert.Equal(t, content, src.String())
		assert.Empty(t, src.Includes)
	}
}

func TestDirectivesDoesNotReadIncludes(t *testing.T) {
	l, root := newTestLoader(t, "")
	content := "#include \"gone.h\"\nint x;\n"
	writeFile(t, root, "k.cl", content)

	_, err := l.Load("k.cl")
	require.ErrorIs(t, err, ErrFileNotFound)

	path, directives, err := l.Directives("k.cl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "k.cl"), path)
	require.Len(t, directives, 1)
	assert.Equal(t, Directive{Start: 0, End: len(`#include "gone.h"`), Line: 1, Target: "gone.h"}, directives[0])

	_, _, err = l.Directives("absent.cl")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadSearchesSrcAndInclude(t *testing.T) {
	l, root := newTestLoader(t, "")
	writeFile(t, filepath.Join(root, "src"), "k.cl", "#include \"common.h\"\n")
	writeFile(t, filepath.Join(root, "include"), "common.h", "#define N 4\n")

	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, "#define N 4\n# 2 \"k.cl\"\n", src.String())
	require.Len(t, src.Includes, 1)
	assert.Equal(t, filepath.Join(root, "include", "common.h"), src.Includes[0].Path)
	assert.Equal(t, len("#define N 4\n"), src.Includes[0].Size)
}

func TestLoadSearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	l, _ := newTestLoader(t, first+":"+second)
	writeFile(t, first, "k.cl", "from first\n")
	writeFile(t, second, "k.cl", "from second\n")

	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, "from first\n", src.String())
	assert.Equal(t, filepath.Join(first, "k.cl"), src.Path)
}

func TestLoadEnvIsReadPerLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "k.cl", "k\n")

	env := ""
	l := NewLoader(Options{Root: t.TempDir(), Getenv: func(string) string { return env }})

	_, err := l.Load("k.cl")
	require.ErrorIs(t, err, ErrFileNotFound)

	env = dir
	_, err = l.Load("k.cl")
	require.NoError(t, err)
}

func TestLoadDirsAfterEnv(t *testing.T) {
	envDir := t.TempDir()
	cfgDir := t.TempDir()
	writeFile(t, envDir, "k.cl", "env\n")
	writeFile(t, cfgDir, "k.cl", "cfg\n")

	l := NewLoader(Options{
		Root:   t.TempDir(),
		Dirs:   []string{cfgDir},
		Getenv: func(string) string { return envDir },
	})

	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, "env\n", src.String())
	assert.Equal(t, []string{envDir, cfgDir}, src.SearchPath[3:])
}

func TestLoadCommentImmunity(t *testing.T) {
	l, root := newTestLoader(t, "")
	content := "// #include \"x.h\"\n/*\n#include \"x.h\"\n*/\nint y;\n"
	writeFile(t, root, "k.cl", content)

	src, err := l.Load("k.cl")
	require.NoError(t, err, "x.h does not exist and must never be opened")
	assert.Equal(t, content, src.String())
}

func TestLoadSplice(t *testing.T) {
	l, root := newTestLoader(t, "")
	content := "int a;\nint b;\n#include \"b.h\"\nint c;\n"
	writeFile(t, root, "a.cl", content)
	writeFile(t, root, "b.h", "BBB")

	src, err := l.Load("a.cl")
	require.NoError(t, err)

	want := "int a;\nint b;\nBBB# 4 \"a.cl\"\nint c;\n"
	assert.Equal(t, want, src.String())
	assert.Equal(t, len(content)-len(`#include "b.h"`)+len("BBB")+len(`# 4 "a.cl"`), src.Len())
	assert.Equal(t, byte(0), src.Terminated()[src.Len()])
}

func TestLoadIncludesAreNotRecursive(t *testing.T) {
	l, root := newTestLoader(t, "")
	writeFile(t, root, "k.cl", "#include \"outer.h\"\n")
	writeFile(t, root, "outer.h", "#include \"inner.h\"\n")

	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, "#include \"inner.h\"\n# 2 \"k.cl\"\n", src.String())
}

func TestLoadTooManyIncludes(t *testing.T) {
	l, root := newTestLoader(t, "")
	var b strings.Builder
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&b, "#include \"missing%d.h\"\n", i)
	}
	writeFile(t, root, "k.cl", b.String())

	src, err := l.Load("k.cl")
	assert.Nil(t, src)
	// none of the nine exist; getting the limit error proves none were looked up
	require.ErrorIs(t, err, ErrTooManyIncludes)
	assert.NotErrorIs(t, err, ErrFileNotFound)

	var kerr *Error
	require.True(t, errors.As(err, &kerr))
	assert.NotEmpty(t, kerr.SearchPath)
}

func TestLoadMissingInclude(t *testing.T) {
	l, root := newTestLoader(t, "")
	writeFile(t, root, "k.cl", "int a;\n#include \"gone.h\"\n")

	src, err := l.Load("k.cl")
	assert.Nil(t, src)
	require.ErrorIs(t, err, ErrFileNotFound)

	var kerr *Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, "gone.h", kerr.File)
	assert.Equal(t, "k.cl", kerr.From)
	assert.Equal(t, 2, kerr.Line)
	assert.Contains(t, err.Error(), `k.cl:2: include "gone.h"`)
}

func TestLoadUnterminatedInclude(t *testing.T) {
	l, root := newTestLoader(t, "")
	writeFile(t, root, "k.cl", "#include \"unterminated")

	src, err := l.Load("k.cl")
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrUnterminatedInclude)
}

func TestLoadMissingKernel(t *testing.T) {
	l, root := newTestLoader(t, "")

	_, err := l.Load("absent.cl")
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Contains(t, err.Error(), root)
}

func TestLoadMaxIncludesOption(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "k.cl", "#include \"a.h\"\n#include \"a.h\"\n")
	writeFile(t, root, "a.h", "A\n")

	l := NewLoader(Options{Root: root, MaxIncludes: 1, Getenv: func(string) string { return "" }})
	_, err := l.Load("k.cl")
	assert.ErrorIs(t, err, ErrTooManyIncludes)

	l = NewLoader(Options{Root: root, Getenv: func(string) string { return "" }})
	src, err := l.Load("k.cl")
	require.NoError(t, err)
	assert.Equal(t, "A\n# 2 \"k.cl\"\nA\n# 3 \"k.cl\"\n", src.String())
	assert.Equal(t, 4, src.Lines())
}
