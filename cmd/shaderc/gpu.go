//go:build !nogpu

package main

// Register the Vulkan backend.
import _ "github.com/gogpu/shader/backend/wgpu"
