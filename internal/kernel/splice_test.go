package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker(t *testing.T) {
	assert.Equal(t, `# 4 "a.cl"`, Marker(3, "a.cl"))
	assert.Equal(t, `# 1 "k.cl"`, Marker(0, "k.cl"))
}

func TestSpliceSingle(t *testing.T) {
	src := "int a;\nint b;\n#include \"b.h\"\nint c;\n"
	directives, err := Extract("a.cl", []byte(src), 0)
	require.NoError(t, err)
	require.Len(t, directives, 1)

	contents := [][]byte{[]byte("BBB")}
	out, err := Splice([]byte(src), directives, contents, "a.cl")
	require.NoError(t, err)

	want := "int a;\nint b;\nBBB# 4 \"a.cl\"\nint c;\n"
	assert.Equal(t, want, string(out))

	d := directives[0]
	wantLen := len(src) - (d.End - d.Start) + len("BBB") + len(`# 4 "a.cl"`)
	assert.Equal(t, wantLen, len(out))
	assert.Equal(t, wantLen, SplicedLen(len(src), directives, contents, "a.cl"))
	assert.GreaterOrEqual(t, cap(out), len(out)+1)
}

func TestSpliceMultiple(t *testing.T) {
	src := "#include \"a.h\"\nmid\n#include \"b.h\"\ntail"
	directives, err := Extract("k.cl", []byte(src), 0)
	require.NoError(t, err)

	out, err := Splice([]byte(src), directives, [][]byte{[]byte("A\n"), []byte("B\n")}, "k.cl")
	require.NoError(t, err)
	assert.Equal(t, "A\n# 2 \"k.cl\"\nmid\nB\n# 4 \"k.cl\"\ntail", string(out))
}

func TestSpliceEmpty(t *testing.T) {
	src := []byte("unchanged\n")
	out, err := Splice(src, nil, nil, "k.cl")
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestSpliceRejectsBadInput(t *testing.T) {
	src := []byte("0123456789")

	_, err := Splice(src, []Directive{{Start: 0, End: 2}}, nil, "k.cl")
	assert.Error(t, err, "content count mismatch")

	_, err = Splice(src, []Directive{{Start: 5, End: 6}, {Start: 2, End: 3}}, [][]byte{nil, nil}, "k.cl")
	assert.Error(t, err, "out of order")

	_, err = Splice(src, []Directive{{Start: 8, End: 20}}, [][]byte{nil}, "k.cl")
	assert.Error(t, err, "out of range")
}
