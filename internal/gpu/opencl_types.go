package gpu

import (
	"fmt"
	"strings"
)

// DeviceType describes the class of an OpenCL device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeUnknown     DeviceType = "Unknown"
	// DeviceTypeAny accepts the first device found.
	DeviceTypeAny DeviceType = "Any"
)

// ParseDeviceType maps a configuration value (gpu, cpu, all) to a DeviceType.
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gpu":
		return DeviceTypeGPU, nil
	case "cpu":
		return DeviceTypeCPU, nil
	case "", "all", "any":
		return DeviceTypeAny, nil
	default:
		return "", fmt.Errorf("unknown device type %q (want gpu, cpu or all)", s)
	}
}

// DeviceInfo captures metadata about an OpenCL device.
type DeviceInfo struct {
	Name            string
	Vendor          string
	Version         string
	Type            DeviceType
	MaxComputeUnits uint32
}

// PlatformInfo captures metadata about an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}

// KernelArg describes one kernel argument. The qualifiers and names are only
// reported when the program was built with -cl-kernel-arg-info.
type KernelArg struct {
	Index            int
	AddressQualifier string
	AccessQualifier  string
	TypeName         string
	TypeQualifiers   []string
	Name             string
}

// String renders the argument roughly as it appears in the kernel signature.
func (a KernelArg) String() string {
	var parts []string
	if a.AddressQualifier != "" && a.AddressQualifier != "private" {
		parts = append(parts, "__"+a.AddressQualifier)
	}
	if a.AccessQualifier != "" && a.AccessQualifier != "none" {
		parts = append(parts, "__"+a.AccessQualifier)
	}
	parts = append(parts, a.TypeQualifiers...)
	if a.TypeName != "" {
		parts = append(parts, a.TypeName)
	}
	if a.Name != "" {
		parts = append(parts, a.Name)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("arg%d", a.Index)
	}
	return strings.Join(parts, " ")
}

// KernelInfo is what the runtime reports about a built kernel.
type KernelInfo struct {
	FunctionName          string
	NumArgs               int
	Attributes            string
	WorkGroupSize         int
	PreferredSizeMultiple int
	LocalMemSize          uint64
	PrivateMemSize        uint64
	Args                  []KernelArg
}

// BuildError reports a failed program build together with the compiler log.
type BuildError struct {
	Options string
	Log     string
	Err     error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build failed: %v (options %q)", e.Err, e.Options)
	if log := strings.TrimSpace(e.Log); log != "" {
		msg += "\n" + log
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }
