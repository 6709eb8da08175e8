//go:build !windows

package device

import "github.com/annet-ml/annet/internal/errs"

// OpenWebGPU reports that the WebGPU backend is not built on this platform.
func OpenWebGPU(id int) (Device, error) {
	return nil, errs.New(errs.KindDevice, "device.OpenWebGPU", "webgpu backend is only built for windows (device %d)", id)
}
