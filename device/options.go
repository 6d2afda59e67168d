// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"log/slog"

	"github.com/gogpu/naga/spirv"
)

// DefaultCacheSize is the number of compiled stages kept by default.
const DefaultCacheSize = 64

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := device.New(b,
//		device.WithValidation(false),
//		device.WithSPIRVVersion(spirv.Version1_5),
//	)
type Option func(*options)

// options holds optional configuration for Device creation.
type options struct {
	validate     bool
	spirvVersion spirv.Version
	debugInfo    bool
	cacheSize    int
	logger       *slog.Logger
}

// defaultOptions returns the default device options.
func defaultOptions() options {
	return options{
		validate:     true,
		spirvVersion: spirv.Version1_3,
		debugInfo:    false,
		cacheSize:    DefaultCacheSize,
		logger:       nil, // silent
	}
}

// WithValidation enables or disables naga IR validation before SPIR-V
// generation. Enabled by default.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithSPIRVVersion sets the SPIR-V version of generated modules.
// Default: 1.3.
func WithSPIRVVersion(v spirv.Version) Option {
	return func(o *options) {
		o.spirvVersion = v
	}
}

// WithDebugInfo emits debug names and line info into generated modules.
func WithDebugInfo(enabled bool) Option {
	return func(o *options) {
		o.debugInfo = enabled
	}
}

// WithCacheSize sets how many compiled stages are cached.
// Zero or a negative size disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithLogger sets the device logger. Without it the device is silent until
// SetLogger is called (shader.RegisterDevice does that).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
