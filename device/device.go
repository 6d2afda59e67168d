// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/backend"
	"github.com/gogpu/shader/gpucore"
	"github.com/gogpu/shader/internal/cache"
)

// Device errors.
var (
	// ErrNilBackend is returned by New without a backend.
	ErrNilBackend = errors.New("device: backend must not be nil")

	// ErrClosed is returned when creating resources on a closed device.
	ErrClosed = errors.New("device: closed")

	// ErrNilRecord is returned for a nil record.
	ErrNilRecord = errors.New("device: nil record")

	// ErrRecordInUse is returned when a record already holds handles.
	ErrRecordInUse = errors.New("device: record already holds resources")
)

// CacheStats describes the compiled-stage cache.
type CacheStats = cache.Stats

// Device is the reference shader.Device. It compiles WGSL stages with
// naga, reflects their resources, links them into per-set bind group
// layouts and creates the backend objects a shader owns.
//
// Device is safe for concurrent use: independent shaders may be created
// and released from several goroutines.
type Device struct {
	backend gpucore.Backend
	opts    options
	cache   *cache.Cache[stageKey, *compiledStage]
	logger  atomic.Pointer[slog.Logger]

	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a device on top of b. The device takes ownership of b and
// closes it in Close.
func New(b gpucore.Backend, opts ...Option) (*Device, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		backend: b,
		opts:    o,
		cache:   cache.New[stageKey, *compiledStage](o.cacheSize),
	}
	d.SetLogger(o.logger)
	return d, nil
}

// Open opens the named backend (the best available one for "") and
// creates a device on it.
func Open(name string, opts ...Option) (*Device, error) {
	var (
		b   gpucore.Backend
		err error
	)
	if name == "" {
		b, err = backend.Default()
	} else {
		b, err = backend.Open(name)
	}
	if err != nil {
		return nil, err
	}
	d, err := New(b, opts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	d.Logger().Info("device: backend selected", "backend", b.Name())
	return d, nil
}

// SetLogger sets the device logger. Pass nil to silence it.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.logger.Store(l)
}

// Logger returns the device logger.
func (d *Device) Logger() *slog.Logger {
	return d.logger.Load()
}

// Backend returns the backend the device creates objects on.
func (d *Device) Backend() gpucore.Backend {
	return d.backend
}

// CacheStats returns statistics of the compiled-stage cache.
func (d *Device) CacheStats() CacheStats {
	return d.cache.Stats()
}

// Close closes the backend. Records created on the device must be
// released first. Close is idempotent.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.cache.Purge()
		d.backend.Close()
		d.Logger().Debug("device: closed", "backend", d.backend.Name())
	})
}

// objects tracks backend objects created for one record, for rollback.
type objects struct {
	modules  []gpucore.Handle // indexed like the record's stages
	layouts  []gpucore.Handle // indexed by set
	pipeline gpucore.Handle
}

// CreateShaderResources compiles every stage of rec, links them and
// creates the shader modules, one bind group layout per set and the
// pipeline layout (the record's GPUProgram).
//
// Nothing is written to the handle fields of rec unless every step
// succeeds; on failure the objects created so far are destroyed.
func (d *Device) CreateShaderResources(rec *shader.GPUShader) error {
	if rec == nil {
		return ErrNilRecord
	}
	if d.closed.Load() {
		return ErrClosed
	}
	if !rec.Empty() {
		return fmt.Errorf("%w: %s", ErrRecordInUse, rec.Name)
	}

	compiled := make([]*compiledStage, len(rec.GPUStages))
	for i := range rec.GPUStages {
		cs, err := d.compileStage(rec.Name, i, &rec.GPUStages[i])
		if err != nil {
			return err
		}
		compiled[i] = cs
	}

	linked, err := linkStages(rec, compiled)
	if err != nil {
		return err
	}

	objs, err := d.createObjects(rec, compiled, linked)
	if err != nil {
		if rbErr := d.destroyObjects(objs); rbErr != nil {
			d.Logger().Warn("device: rollback incomplete", "shader", rec.Name, "err", rbErr)
		}
		return err
	}

	linked.fill(rec, compiled)
	for i, h := range objs.modules {
		rec.GPUStages[i].GPUShader = gpucore.Some(h)
	}
	for set, h := range objs.layouts {
		rec.GPULayouts[uint32(set)] = h
	}
	rec.GPUProgram = gpucore.Some(objs.pipeline)

	d.Logger().Debug("device: shader resources created",
		"shader", rec.Name,
		"modules", len(objs.modules),
		"layouts", len(objs.layouts),
		"program", objs.pipeline)
	return nil
}

// createObjects creates the backend objects in dependency order. The
// returned objects are valid even on error so the caller can roll back.
func (d *Device) createObjects(rec *shader.GPUShader, compiled []*compiledStage, linked *linkedShader) (*objects, error) {
	objs := &objects{}
	backendErr := func(index int, err error) error {
		e := &shader.ShaderCompilationError{
			Shader:     rec.Name,
			Stage:      gpucore.StageNone,
			StageIndex: index,
			Phase:      shader.PhaseBackend,
			Err:        err,
		}
		if index >= 0 {
			e.Stage = rec.GPUStages[index].Type
		}
		return e
	}

	for i, cs := range compiled {
		st := &rec.GPUStages[i]
		h, err := d.backend.CreateShaderModule(&gpucore.ShaderModuleDesc{
			Label:      fmt.Sprintf("%s.%s", rec.Name, st.Type),
			Stage:      st.Type,
			EntryPoint: cs.entryPoint,
			SPIRV:      cs.spirv,
			WGSL:       st.Source,
		})
		if err != nil {
			return objs, backendErr(i, fmt.Errorf("create shader module: %w", err))
		}
		objs.modules = append(objs.modules, h)
	}

	// Sets below the highest used one get an empty layout.
	for set := 0; set <= linked.maxSet; set++ {
		h, err := d.backend.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
			Label:   fmt.Sprintf("%s.set%d", rec.Name, set),
			Set:     uint32(set),
			Entries: linked.sets[uint32(set)],
		})
		if err != nil {
			return objs, backendErr(-1, fmt.Errorf("create bind group layout for set %d: %w", set, err))
		}
		objs.layouts = append(objs.layouts, h)
	}

	h, err := d.backend.CreatePipelineLayout(&gpucore.PipelineLayoutDesc{
		Label:            rec.Name,
		BindGroupLayouts: slices.Clone(objs.layouts),
	})
	if err != nil {
		return objs, backendErr(-1, fmt.Errorf("create pipeline layout: %w", err))
	}
	objs.pipeline = h
	return objs, nil
}

// destroyObjects destroys objects in reverse creation order.
func (d *Device) destroyObjects(objs *objects) error {
	if objs == nil {
		return nil
	}
	var errs []error
	if objs.pipeline.Valid() {
		if err := d.backend.DestroyPipelineLayout(objs.pipeline); err != nil {
			errs = append(errs, fmt.Errorf("destroy pipeline layout %v: %w", objs.pipeline, err))
		}
	}
	for i := len(objs.layouts) - 1; i >= 0; i-- {
		if err := d.backend.DestroyBindGroupLayout(objs.layouts[i]); err != nil {
			errs = append(errs, fmt.Errorf("destroy bind group layout %v: %w", objs.layouts[i], err))
		}
	}
	for i := len(objs.modules) - 1; i >= 0; i-- {
		if err := d.backend.DestroyShaderModule(objs.modules[i]); err != nil {
			errs = append(errs, fmt.Errorf("destroy shader module %v: %w", objs.modules[i], err))
		}
	}
	return errors.Join(errs...)
}

// ReleaseShaderResources destroys every object referenced by rec and
// marks the handles absent. All objects are attempted; failures are
// joined into the returned error.
func (d *Device) ReleaseShaderResources(rec *shader.GPUShader) error {
	if rec == nil {
		return ErrNilRecord
	}

	objs := &objects{}
	if h, ok := rec.GPUProgram.Take().Get(); ok {
		objs.pipeline = h
	}
	for _, set := range slices.Sorted(maps.Keys(rec.GPULayouts)) {
		objs.layouts = append(objs.layouts, rec.GPULayouts[set])
	}
	clear(rec.GPULayouts)
	for i := range rec.GPUStages {
		if h, ok := rec.GPUStages[i].GPUShader.Take().Get(); ok {
			objs.modules = append(objs.modules, h)
		}
	}
	clear(rec.Bindings)

	err := d.destroyObjects(objs)
	if err != nil {
		return fmt.Errorf("device: release %s: %w", rec.Name, err)
	}
	d.Logger().Debug("device: shader resources released", "shader", rec.Name)
	return nil
}

// Compile-time interface check.
var _ shader.Device = (*Device)(nil)
