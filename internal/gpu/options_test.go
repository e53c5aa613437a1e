package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptions(t *testing.T) {
	tests := []struct {
		name string
		base string
		path []string
		want string
	}{
		{"empty", "", nil, ""},
		{"base only", DefaultBuildOptions, nil, "-cl-kernel-arg-info"},
		{
			"search path appended in order",
			DefaultBuildOptions,
			[]string{"/k", "/k/src", "/k/include"},
			"-cl-kernel-arg-info -I /k -I /k/src -I /k/include",
		},
		{
			"duplicates dropped",
			"",
			[]string{"/k", "/k/", "/x", "/k"},
			"-I /k -I /x",
		},
		{
			"directories already in base are skipped",
			"-cl-fast-relaxed-math -I /k",
			[]string{"/k", "/other"},
			"-cl-fast-relaxed-math -I /k -I /other",
		},
		{
			"spaces quoted",
			"",
			[]string{"/my kernels"},
			`-I "/my kernels"`,
		},
		{
			"empty entries skipped",
			"  -w  ",
			[]string{"", "/k"},
			"-w -I /k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildOptions(tt.base, tt.path))
		})
	}
}

func TestParseDeviceType(t *testing.T) {
	for in, want := range map[string]DeviceType{
		"gpu": DeviceTypeGPU,
		"CPU": DeviceTypeCPU,
		"all": DeviceTypeAny,
		"":    DeviceTypeAny,
	} {
		got, err := ParseDeviceType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDeviceType("fpga")
	assert.Error(t, err)
}

func TestKernelArgString(t *testing.T) {
	arg := KernelArg{
		AddressQualifier: "global",
		AccessQualifier:  "none",
		TypeName:         "float*",
		TypeQualifiers:   []string{"const"},
		Name:             "in",
	}
	assert.Equal(t, "__global const float* in", arg.String())
	assert.Equal(t, "arg3", KernelArg{Index: 3}.String())
	assert.Equal(t, "int n", KernelArg{AddressQualifier: "private", TypeName: "int", Name: "n"}.String())
}

func TestBuildErrorIncludesLog(t *testing.T) {
	cause := errors.New("CL_BUILD_PROGRAM_FAILURE")
	err := &BuildError{Options: "-I /k", Log: "k.cl:3:1: error: use of undeclared identifier 'N'\n", Err: cause}

	assert.ErrorIs(t, err, cause)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "build failed: CL_BUILD_PROGRAM_FAILURE"))
	assert.Contains(t, msg, `"-I /k"`)
	assert.Contains(t, msg, "undeclared identifier")
}
