package shader

// Option configures a Shader during creation.
//
// Example:
//
//	// Use the process-wide device registered with RegisterDevice
//	s := shader.New()
//
//	// Explicit device (dependency injection)
//	s := shader.New(shader.WithDevice(dev))
type Option func(*options)

// options holds optional configuration for Shader creation.
type options struct {
	device Device
}

// defaultOptions returns the default shader options.
func defaultOptions() options {
	return options{
		device: nil, // resolved from CurrentDevice at Initialize time
	}
}

// WithDevice sets the device that creates and releases the shader's
// backend resources. The same device must stay alive until Destroy.
func WithDevice(d Device) Option {
	return func(o *options) {
		o.device = d
	}
}
