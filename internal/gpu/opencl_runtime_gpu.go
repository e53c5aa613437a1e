//go:build gpu

package gpu

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <stdlib.h>
#include <CL/cl.h>

static const char* clk_error_string(cl_int status) {
	switch (status) {
	case CL_SUCCESS: return "CL_SUCCESS";
	case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
	case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
	case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
	case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
	case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
	case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
	case CL_KERNEL_ARG_INFO_NOT_AVAILABLE: return "CL_KERNEL_ARG_INFO_NOT_AVAILABLE";
	case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
	case CL_INVALID_DEVICE_TYPE: return "CL_INVALID_DEVICE_TYPE";
	case CL_INVALID_PLATFORM: return "CL_INVALID_PLATFORM";
	case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
	case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
	case CL_INVALID_BINARY: return "CL_INVALID_BINARY";
	case CL_INVALID_BUILD_OPTIONS: return "CL_INVALID_BUILD_OPTIONS";
	case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
	case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
	case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
	case CL_INVALID_KERNEL_DEFINITION: return "CL_INVALID_KERNEL_DEFINITION";
	case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
	case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
	case CL_INVALID_OPERATION: return "CL_INVALID_OPERATION";
	case CL_INVALID_COMPILER_OPTIONS: return "CL_INVALID_COMPILER_OPTIONS";
	default: return "CL_UNKNOWN_ERROR";
	}
}
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"
)

// Runtime owns the OpenCL context of the selected device.
type Runtime struct {
	platformID C.cl_platform_id
	deviceID   C.cl_device_id
	context    C.cl_context
	Platform   PlatformInfo
	Device     DeviceInfo
}

// ErrNoDevices indicates that no usable OpenCL devices were found.
var ErrNoDevices = errors.New("no OpenCL devices found")

// InitOpenCL selects a device of the preferred type, falling back to GPU,
// then CPU, then the first device found, and creates a context for it.
func InitOpenCL(preferred DeviceType) (*Runtime, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoDevices
	}

	type selection struct {
		platform platformRecord
		device   deviceRecord
	}

	find := func(want DeviceType) *selection {
		for _, platform := range records {
			for _, device := range platform.devices {
				if want == DeviceTypeAny || device.info.Type == want {
					return &selection{platform: platform, device: device}
				}
			}
		}
		return nil
	}

	var chosen *selection
	for _, want := range []DeviceType{preferred, DeviceTypeGPU, DeviceTypeCPU, DeviceTypeAny} {
		if want == "" {
			continue
		}
		if chosen = find(want); chosen != nil {
			break
		}
	}
	if chosen == nil {
		return nil, ErrNoDevices
	}
	if preferred != DeviceTypeAny && chosen.device.info.Type != preferred {
		slog.Warn("Preferred device type not available", "preferred", preferred, "using", chosen.device.info.Name)
	}

	var status C.cl_int
	context := C.clCreateContext(nil, 1, &chosen.device.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateContext", status)
	}

	return &Runtime{
		platformID: chosen.platform.id,
		deviceID:   chosen.device.id,
		context:    context,
		Platform:   chosen.platform.info,
		Device:     chosen.device.info,
	}, nil
}

// Close releases OpenCL resources.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.context != nil {
		C.clReleaseContext(r.context)
		r.context = nil
	}
}

// Build compiles source for the runtime's device and reports on kernelName.
// A trailing NUL in source is dropped. Build failures return a *BuildError
// carrying the compiler log.
func (r *Runtime) Build(source []byte, kernelName, options string) (*KernelInfo, error) {
	if n := len(source); n > 0 && source[n-1] == 0 {
		source = source[:n-1]
	}
	if len(source) == 0 {
		return nil, errors.New("empty kernel source")
	}

	csrc := (*C.char)(C.CBytes(source))
	defer C.free(unsafe.Pointer(csrc))
	length := C.size_t(len(source))

	var status C.cl_int
	program := C.clCreateProgramWithSource(r.context, 1, &csrc, &length, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateProgramWithSource", status)
	}
	defer C.clReleaseProgram(program)

	copts := C.CString(options)
	defer C.free(unsafe.Pointer(copts))

	status = C.clBuildProgram(program, 1, &r.deviceID, copts, nil, nil)
	if status != C.CL_SUCCESS {
		log, logErr := r.buildLog(program)
		if logErr != nil {
			slog.Warn("Cannot read build log", "error", logErr)
		}
		return nil, &BuildError{Options: options, Log: log, Err: statusError("clBuildProgram", status)}
	}

	cname := C.CString(kernelName)
	defer C.free(unsafe.Pointer(cname))

	kernel := C.clCreateKernel(program, cname, &status)
	if status != C.CL_SUCCESS {
		return nil, fmt.Errorf("kernel %q: %w", kernelName, statusError("clCreateKernel", status))
	}
	defer C.clReleaseKernel(kernel)

	return r.kernelInfo(kernel)
}

func (r *Runtime) buildLog(program C.cl_program) (string, error) {
	var size C.size_t
	status := C.clGetProgramBuildInfo(program, r.deviceID, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetProgramBuildInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	status = C.clGetProgramBuildInfo(program, r.deviceID, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetProgramBuildInfo(value)", status)
	}
	return trimNull(buf), nil
}

func (r *Runtime) kernelInfo(kernel C.cl_kernel) (*KernelInfo, error) {
	name, err := getKernelString(kernel, C.CL_KERNEL_FUNCTION_NAME)
	if err != nil {
		return nil, err
	}
	attrs, err := getKernelString(kernel, C.CL_KERNEL_ATTRIBUTES)
	if err != nil {
		return nil, err
	}

	var numArgs C.cl_uint
	status := C.clGetKernelInfo(kernel, C.CL_KERNEL_NUM_ARGS, C.size_t(unsafe.Sizeof(numArgs)), unsafe.Pointer(&numArgs), nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetKernelInfo(numArgs)", status)
	}

	var wgSize, multiple C.size_t
	var localMem, privateMem C.cl_ulong
	for _, q := range []struct {
		param C.cl_kernel_work_group_info
		size  uintptr
		ptr   unsafe.Pointer
	}{
		{C.CL_KERNEL_WORK_GROUP_SIZE, unsafe.Sizeof(wgSize), unsafe.Pointer(&wgSize)},
		{C.CL_KERNEL_PREFERRED_WORK_GROUP_SIZE_MULTIPLE, unsafe.Sizeof(multiple), unsafe.Pointer(&multiple)},
		{C.CL_KERNEL_LOCAL_MEM_SIZE, unsafe.Sizeof(localMem), unsafe.Pointer(&localMem)},
		{C.CL_KERNEL_PRIVATE_MEM_SIZE, unsafe.Sizeof(privateMem), unsafe.Pointer(&privateMem)},
	} {
		status = C.clGetKernelWorkGroupInfo(kernel, r.deviceID, q.param, C.size_t(q.size), q.ptr, nil)
		if status != C.CL_SUCCESS {
			return nil, statusError("clGetKernelWorkGroupInfo", status)
		}
	}

	info := &KernelInfo{
		FunctionName:          name,
		NumArgs:               int(numArgs),
		Attributes:            attrs,
		WorkGroupSize:         int(wgSize),
		PreferredSizeMultiple: int(multiple),
		LocalMemSize:          uint64(localMem),
		PrivateMemSize:        uint64(privateMem),
	}

	for i := 0; i < int(numArgs); i++ {
		arg, err := kernelArg(kernel, C.cl_uint(i))
		if err != nil {
			// only available with -cl-kernel-arg-info
			slog.Debug("Kernel argument info unavailable", "kernel", name, "error", err)
			info.Args = nil
			break
		}
		info.Args = append(info.Args, arg)
	}

	return info, nil
}

func kernelArg(kernel C.cl_kernel, index C.cl_uint) (KernelArg, error) {
	arg := KernelArg{Index: int(index)}

	var addr C.cl_kernel_arg_address_qualifier
	status := C.clGetKernelArgInfo(kernel, index, C.CL_KERNEL_ARG_ADDRESS_QUALIFIER, C.size_t(unsafe.Sizeof(addr)), unsafe.Pointer(&addr), nil)
	if status != C.CL_SUCCESS {
		return arg, statusError("clGetKernelArgInfo(address)", status)
	}
	switch addr {
	case C.CL_KERNEL_ARG_ADDRESS_GLOBAL:
		arg.AddressQualifier = "global"
	case C.CL_KERNEL_ARG_ADDRESS_LOCAL:
		arg.AddressQualifier = "local"
	case C.CL_KERNEL_ARG_ADDRESS_CONSTANT:
		arg.AddressQualifier = "constant"
	default:
		arg.AddressQualifier = "private"
	}

	var access C.cl_kernel_arg_access_qualifier
	status = C.clGetKernelArgInfo(kernel, index, C.CL_KERNEL_ARG_ACCESS_QUALIFIER, C.size_t(unsafe.Sizeof(access)), unsafe.Pointer(&access), nil)
	if status != C.CL_SUCCESS {
		return arg, statusError("clGetKernelArgInfo(access)", status)
	}
	switch access {
	case C.CL_KERNEL_ARG_ACCESS_READ_ONLY:
		arg.AccessQualifier = "read_only"
	case C.CL_KERNEL_ARG_ACCESS_WRITE_ONLY:
		arg.AccessQualifier = "write_only"
	case C.CL_KERNEL_ARG_ACCESS_READ_WRITE:
		arg.AccessQualifier = "read_write"
	default:
		arg.AccessQualifier = "none"
	}

	var typeQual C.cl_kernel_arg_type_qualifier
	status = C.clGetKernelArgInfo(kernel, index, C.CL_KERNEL_ARG_TYPE_QUALIFIER, C.size_t(unsafe.Sizeof(typeQual)), unsafe.Pointer(&typeQual), nil)
	if status != C.CL_SUCCESS {
		return arg, statusError("clGetKernelArgInfo(typeQualifier)", status)
	}
	if typeQual&C.CL_KERNEL_ARG_TYPE_CONST != 0 {
		arg.TypeQualifiers = append(arg.TypeQualifiers, "const")
	}
	if typeQual&C.CL_KERNEL_ARG_TYPE_RESTRICT != 0 {
		arg.TypeQualifiers = append(arg.TypeQualifiers, "restrict")
	}
	if typeQual&C.CL_KERNEL_ARG_TYPE_VOLATILE != 0 {
		arg.TypeQualifiers = append(arg.TypeQualifiers, "volatile")
	}

	var err error
	if arg.TypeName, err = getKernelArgString(kernel, index, C.CL_KERNEL_ARG_TYPE_NAME); err != nil {
		return arg, err
	}
	if arg.Name, err = getKernelArgString(kernel, index, C.CL_KERNEL_ARG_NAME); err != nil {
		return arg, err
	}
	return arg, nil
}

// EnumeratePlatforms returns discovered platforms with their devices.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}

	out := make([]PlatformInfo, len(records))
	for i, platform := range records {
		out[i] = platform.info
	}
	return out, nil
}

type platformRecord struct {
	id      C.cl_platform_id
	info    PlatformInfo
	devices []deviceRecord
}

type deviceRecord struct {
	id   C.cl_device_id
	info DeviceInfo
}

func enumeratePlatformRecords() ([]platformRecord, error) {
	var count C.cl_uint
	status := C.clGetPlatformIDs(0, nil, &count)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(count)", status)
	}
	if count == 0 {
		return nil, nil
	}

	platformIDs := make([]C.cl_platform_id, int(count))
	status = C.clGetPlatformIDs(count, &platformIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(list)", status)
	}

	records := make([]platformRecord, 0, int(count))
	for _, pid := range platformIDs {
		rec := platformRecord{id: pid}
		for _, field := range []struct {
			param C.cl_platform_info
			dst   *string
		}{
			{C.CL_PLATFORM_NAME, &rec.info.Name},
			{C.CL_PLATFORM_VENDOR, &rec.info.Vendor},
			{C.CL_PLATFORM_VERSION, &rec.info.Version},
		} {
			value, err := getPlatformString(pid, field.param)
			if err != nil {
				return nil, err
			}
			*field.dst = value
		}

		devices, err := enumerateDevices(pid)
		if err != nil && !errors.Is(err, ErrNoDevices) {
			return nil, err
		}
		rec.devices = devices
		for _, device := range devices {
			rec.info.Devices = append(rec.info.Devices, device.info)
		}
		records = append(records, rec)
	}

	return records, nil
}

func enumerateDevices(platform C.cl_platform_id) ([]deviceRecord, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || (status == C.CL_SUCCESS && count == 0) {
		return nil, ErrNoDevices
	}
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(count)", status)
	}

	deviceIDs := make([]C.cl_device_id, int(count))
	status = C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count, &deviceIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(list)", status)
	}

	devices := make([]deviceRecord, 0, int(count))
	for _, id := range deviceIDs {
		info, err := buildDeviceInfo(id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, deviceRecord{id: id, info: info})
	}

	return devices, nil
}

func buildDeviceInfo(id C.cl_device_id) (DeviceInfo, error) {
	var info DeviceInfo
	for _, field := range []struct {
		param C.cl_device_info
		dst   *string
	}{
		{C.CL_DEVICE_NAME, &info.Name},
		{C.CL_DEVICE_VENDOR, &info.Vendor},
		{C.CL_DEVICE_VERSION, &info.Version},
	} {
		value, err := getDeviceString(id, field.param)
		if err != nil {
			return DeviceInfo{}, err
		}
		*field.dst = value
	}

	var rawType C.cl_device_type
	status := C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(rawType)), unsafe.Pointer(&rawType), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(type)", status)
	}
	info.Type = mapDeviceType(rawType)

	var computeUnits C.cl_uint
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(computeUnits)), unsafe.Pointer(&computeUnits), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(computeUnits)", status)
	}
	info.MaxComputeUnits = uint32(computeUnits)

	return info, nil
}

// queryString runs the usual two-call OpenCL pattern: size first, then value.
func queryString(what string, query func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int) (string, error) {
	var size C.size_t
	if status := query(0, nil, &size); status != C.CL_SUCCESS {
		return "", statusError(what+"(size)", status)
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	if status := query(size, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		return "", statusError(what+"(value)", status)
	}
	return trimNull(buf), nil
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	return queryString("clGetPlatformInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetPlatformInfo(id, param, size, value, sizeRet)
	})
}

func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	return queryString("clGetDeviceInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetDeviceInfo(id, param, size, value, sizeRet)
	})
}

func getKernelString(kernel C.cl_kernel, param C.cl_kernel_info) (string, error) {
	return queryString("clGetKernelInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetKernelInfo(kernel, param, size, value, sizeRet)
	})
}

func getKernelArgString(kernel C.cl_kernel, index C.cl_uint, param C.cl_kernel_arg_info) (string, error) {
	return queryString("clGetKernelArgInfo", func(size C.size_t, value unsafe.Pointer, sizeRet *C.size_t) C.cl_int {
		return C.clGetKernelArgInfo(kernel, index, param, size, value, sizeRet)
	})
}

func trimNull(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	case dt&C.CL_DEVICE_TYPE_DEFAULT != 0:
		return DeviceTypeDefault
	default:
		return DeviceTypeUnknown
	}
}

func statusError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: %s (%d)", prefix, C.GoString(C.clk_error_string(status)), int(status))
}
