package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/shader/gpucore"
)

// Package errors.
var (
	// ErrInvalidDescription is returned for a malformed or empty description.
	ErrInvalidDescription = errors.New("shader: invalid description")

	// ErrUninitialized is returned when the record is read before a
	// successful Initialize or after Destroy.
	ErrUninitialized = errors.New("shader: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize on the same Shader.
	ErrAlreadyInitialized = errors.New("shader: already initialized")

	// ErrNoDevice is returned when no device was given and none is registered.
	ErrNoDevice = errors.New("shader: no device")

	// ErrIncompleteRecord is returned when a device reports success but
	// left handles absent.
	ErrIncompleteRecord = errors.New("shader: device left record incomplete")

	// ErrShaderCompilation matches every *ShaderCompilationError via errors.Is.
	ErrShaderCompilation = errors.New("shader: compilation failed")
)

// Phase is the step of the creation protocol that failed.
type Phase string

// Creation phases.
const (
	PhaseParse    Phase = "parse"
	PhaseLower    Phase = "lower"
	PhaseValidate Phase = "validate"
	PhaseGenerate Phase = "generate"
	PhaseEntry    Phase = "entry-point"
	PhaseLink     Phase = "link"
	PhaseBackend  Phase = "backend"
)

// ShaderCompilationError reports that a device failed to compile or link
// one or more stages of a shader.
type ShaderCompilationError struct {
	Shader     string
	Stage      gpucore.StageFlags // StageNone for link failures
	StageIndex int                // -1 for link failures
	Phase      Phase
	Err        error
}

func (e *ShaderCompilationError) Error() string {
	if e.StageIndex < 0 {
		return fmt.Sprintf("shader %q: %s: %v", e.Shader, e.Phase, e.Err)
	}
	return fmt.Sprintf("shader %q: %s stage %d: %s: %v", e.Shader, e.Stage, e.StageIndex, e.Phase, e.Err)
}

func (e *ShaderCompilationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrShaderCompilation) match.
func (e *ShaderCompilationError) Is(target error) bool {
	return target == ErrShaderCompilation
}
