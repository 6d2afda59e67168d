// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device is the reference implementation of shader.Device.
//
// A Device compiles each stage of a shader from WGSL to SPIR-V with naga,
// reflects the entry point it selected (vertex inputs, buffer blocks,
// samplers and textures reachable from the entry point), links the stages
// and creates the backend objects the shader owns:
//
//	stage 0 ─┐                      ┌─ shader module per stage
//	stage 1 ─┼─ compile ─ reflect ─ link ─┼─ bind group layout per set
//	stage N ─┘                      └─ pipeline layout (GPUProgram)
//
// Every set up to the highest one used gets a layout; unused sets get an
// empty one so the pipeline layout can be indexed by set.
//
// Creation is all or nothing. When a step fails, the objects created so far
// are destroyed and the record is left without handles. Compile and link
// failures are reported as *shader.ShaderCompilationError.
//
// # Usage
//
//	dev, err := device.Open("software")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	s := shader.New(shader.WithDevice(dev))
//	if err := s.Initialize(info); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Destroy()
//
// Compiled stages are cached by stage kind and source, so shaders that share
// a stage compile it once (see WithCacheSize).
package device
