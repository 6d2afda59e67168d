// Package backend provides a pluggable registry of GPU object backends.
//
// A backend implements gpucore.Backend: it creates and destroys the shader
// modules, bind group layouts and pipeline layouts that a compiled shader
// owns. Compilation and reflection happen in the device package; backends
// only see finished descriptors.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is automatically registered on import:
//
//	import _ "github.com/gogpu/shader/backend"
//
// The Vulkan backend registers itself when its package is imported:
//
//	import _ "github.com/gogpu/shader/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to open the best available backend, or Open() to request
// a specific backend by name:
//
//	// Open the default (best available) backend
//	b, err := backend.Default()
//
//	// Or request a specific backend
//	b, err := backend.Open("software")
//
// # Available Backends
//
//   - software: in-memory objects with descriptor validation and live
//     object counts (always available)
//   - vulkan: GPU objects via gogpu/wgpu HAL (requires the backend/wgpu
//     import and a Vulkan driver)
package backend
