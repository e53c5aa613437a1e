//go:build gpu

package gpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := InitOpenCL(DeviceTypeAny)
	if errors.Is(err, ErrNoDevices) {
		t.Skip("no OpenCL device available")
	}
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func TestBuildReportsKernelInfo(t *testing.T) {
	rt := newTestRuntime(t)

	src := []byte("#define N 4\n# 2 \"add.cl\"\n__kernel void add(__global const float* in, __global float* out, int n) {\n" +
		"  int i = get_global_id(0);\n  if (i < n) out[i] = in[i] + N;\n}\n\x00")

	info, err := rt.Build(src, "add", DefaultBuildOptions)
	require.NoError(t, err)
	assert.Equal(t, "add", info.FunctionName)
	assert.Equal(t, 3, info.NumArgs)
	assert.Positive(t, info.WorkGroupSize)

	require.Len(t, info.Args, 3)
	assert.Equal(t, "in", info.Args[0].Name)
	assert.Equal(t, "global", info.Args[0].AddressQualifier)
	assert.Contains(t, info.Args[0].TypeQualifiers, "const")
	assert.Equal(t, "int", info.Args[2].TypeName)
}

func TestBuildFailureCarriesLog(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Build([]byte("__kernel void k(void) { undeclared = 1; }\n"), "k", "-I /tmp")
	var berr *BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "-I /tmp", berr.Options)
	assert.NotEmpty(t, berr.Log)
}

func TestBuildUnknownKernel(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Build([]byte("__kernel void k(void) {}\n"), "missing", "")
	assert.ErrorContains(t, err, "CL_INVALID_KERNEL_NAME")
}

func TestEnumeratePlatforms(t *testing.T) {
	platforms, err := EnumeratePlatforms()
	require.NoError(t, err)
	for _, p := range platforms {
		assert.NotEmpty(t, p.Name)
	}
}
