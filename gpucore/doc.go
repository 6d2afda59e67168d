// Package gpucore provides the backend-neutral vocabulary shared by the
// shader record, the device service and the backends.
//
// # Resource Handles
//
// Backend objects are never exposed directly. Every backend returns an
// opaque [Handle] for the objects it creates and keeps the mapping to the
// real object in a [Registry]. Handles carry a generation, so a handle to a
// destroyed object is rejected with [ErrStaleHandle] instead of silently
// resolving to whatever reused the slot.
//
// Whether a handle exists yet is expressed with [Optional]: a shader stage
// that has not been compiled holds None, a compiled one holds Some(handle).
//
// # Backends
//
// The [Backend] interface is the object model the device service drives:
//
//	+-------------------+
//	|   device.Device   |  compile (naga) + reflect + link
//	+---------+---------+
//	          |
//	+---------v---------+
//	|  gpucore.Backend  |  shader modules, bind group layouts, pipeline layouts
//	+----+---------+----+
//	     |         |
//	 software    wgpu/hal
//
// # Binding Layouts
//
// [BindGroupLayoutDesc] and [PipelineLayoutDesc] describe the descriptor
// layout objects implied by a shader's binding table.
package gpucore
