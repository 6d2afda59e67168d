// Package shaderfile reads shader descriptions from YAML or TOML files.
//
// A description names the shader and lists its stages, attributes, uniform
// blocks and samplers. Stage source is either inline or a file relative to
// the description:
//
//	name: sprite
//	stages:
//	  - stage: vertex
//	    file: sprite.wgsl
//	  - stage: fragment
//	    file: sprite.wgsl
//	blocks:
//	  - set: 0
//	    binding: 0
//	    name: Globals
//	    members:
//	      - {name: mvp, type: mat4}
//
// Types use the names printed by shader.Type.String. Unknown keys are
// rejected. Every loaded description has passed shader.Info.Validate.
package shaderfile
