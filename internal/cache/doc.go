// Package cache provides a generic LRU cache.
//
// The device service uses it to keep compiled stages keyed by stage kind
// and source, so shaders sharing a stage (a common vertex stage, say) are
// parsed, validated and translated to SPIR-V once:
//
//	c := cache.New[key, *compiledStage](64)
//	if cs, ok := c.Get(k); ok {
//		return cs, nil
//	}
//	c.Add(k, cs)
//
// Cache is safe for concurrent use and must not be copied after creation.
// Values are stored as-is; callers must treat them as immutable.
package cache
