// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides the Vulkan backend on top of gogpu/wgpu HAL.
//
// Importing the package registers the "vulkan" backend:
//
//	import _ "github.com/gogpu/shader/backend/wgpu"
//
//	dev, err := device.Open("vulkan")
//
// New opens a standalone device on the first discrete or integrated GPU.
// Hosts that already own a device (a gogpu application) share it with
// NewFromProvider instead; the backend then never destroys the device.
//
// Build with -tags nogpu to leave the package out of GPU-less builds.
package wgpu
