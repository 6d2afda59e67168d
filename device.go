package shader

import (
	"errors"
	"sync"
)

// Device is the backend service that compiles, links and releases shaders.
//
// CreateShaderResources receives a record whose stages, blocks and
// samplers are populated and whose handles are all absent. On success it
// must have filled GPUProgram, every stage module, the reflected lists and
// Bindings. On failure it must leave no handle present and return a
// *ShaderCompilationError for compile or link problems.
//
// ReleaseShaderResources releases every handle referenced by the record.
// It is called at most once per successfully created record.
//
// Implementations are provided by device packages (see github.com/gogpu/shader/device).
type Device interface {
	CreateShaderResources(rec *GPUShader) error
	ReleaseShaderResources(rec *GPUShader) error
}

// closer is implemented by devices that own backend state.
type closer interface {
	Close()
}

var (
	deviceMu sync.RWMutex
	device   Device
)

// RegisterDevice sets the process-wide device used by Shaders created
// without WithDevice. A previously registered device that implements
// Close is closed. Passing nil is an error.
func RegisterDevice(d Device) error {
	if d == nil {
		return errors.New("shader: device must not be nil")
	}
	propagateLogger(d, Logger())

	deviceMu.Lock()
	old := device
	device = d
	deviceMu.Unlock()

	if old != nil && old != d {
		if c, ok := old.(closer); ok {
			c.Close()
		}
	}
	return nil
}

// CurrentDevice returns the registered device, or nil if none.
func CurrentDevice() Device {
	deviceMu.RLock()
	d := device
	deviceMu.RUnlock()
	return d
}

// resetDevice clears the registration without closing. Used by tests.
func resetDevice() {
	deviceMu.Lock()
	device = nil
	deviceMu.Unlock()
}
