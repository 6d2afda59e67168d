// Package shader manages the backend resources of shaders described in a
// platform-neutral form.
//
// # Overview
//
// A shader is described by an [Info]: a name, one WGSL source per pipeline
// stage, the vertex attributes the engine feeds it, and the uniform blocks
// and samplers it expects. [Shader.Initialize] hands the description to a
// [Device], which compiles every stage, links them, reflects the resource
// interface and returns a [GPUShader] record. Pipeline and descriptor
// layout construction read that record. [Shader.Destroy] releases it.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/shader"
//	    "github.com/gogpu/shader/device"
//	)
//
//	dev, err := device.Open("") // best available backend
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	s := shader.New(shader.WithDevice(dev))
//	if err := s.Initialize(info); err != nil {
//	    return err // *ShaderCompilationError for bad sources
//	}
//	defer s.Destroy()
//
//	rec := s.MustGPUShader()
//	for _, set := range rec.BindingSets() {
//	    fmt.Println(set, rec.Bindings[set])
//	}
//
// # Lifecycle
//
// Initialize is all-or-nothing: on failure no handle is kept and
// [Shader.GPUShader] returns [ErrUninitialized]. Destroy is idempotent and
// never fails; release errors are logged through [Logger].
//
// # Devices
//
// The device can be injected with [WithDevice] or registered process-wide
// with [RegisterDevice]. The reference device lives in package device and
// runs on any backend registered in package backend: a software backend
// that validates descriptors without a GPU, and a Vulkan backend built on
// gogpu/wgpu HAL.
//
// # Architecture
//
// The module is organized into:
//   - Public API: Shader, Info, GPUShader, Device
//   - gpucore: handles, optionals, descriptors and the Backend interface
//   - device: compilation (gogpu/naga), reflection and linking
//   - backend: backend registry, software backend, wgpu backend
//   - shaderfile: YAML and TOML description files
//   - reload: file watching and hot reload
//   - cmd/shaderc: command line compiler and reflector
package shader

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
