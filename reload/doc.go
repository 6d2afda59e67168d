// Package reload keeps a shader in sync with its description file.
//
// A Watcher loads a shaderfile description, initializes it on a device,
// and rebuilds it whenever the description or one of its stage files
// changes. A failed rebuild leaves the previous shader in place:
//
//	w, err := reload.New("shaders/sprite.yaml", dev,
//	    reload.OnError(func(err error) { log.Println(err) }))
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//
//	w.Use(func(s *shader.Shader) {
//	    rec := s.MustGPUShader()
//	    ...
//	})
package reload
