// Package cascade loads layered configuration into a Go struct from sources with predictable precedence.
//
// Register sources from lowest to highest priority with the With* methods, then call StrictlyLoad:
//
//	err := cascade.New().
//	    WithDefaults(map[string]any{"width": 100, "match.error_ratio": 10.0}).
//	    WithTOMLFile("/home/me/.livediff/config.toml").
//	    WithNearestTOMLFile(".livediff/config.toml", cwd).
//	    WithEnv(os.Getenv, map[string]string{"model": "LIVEDIFF_MODEL"}).
//	    WithFlags(fs, map[string]string{"width": "width"}).
//	    StrictlyLoad(&cfg)
//
// Sources
//   - Defaults: a map whose keys may use dot-notation for nesting ("match.error_ratio").
//   - TOML files, read at load time. A missing file contributes nothing; so does an empty one.
//   - Environment variables mapped to keys. Unset or empty variables contribute nothing.
//   - Command-line flags mapped to keys. Only flags that were set on the command line contribute.
//
// Keys come from a field's `toml` tag, or its lowercased name. Unknown keys are an error, as is a value that cannot be coerced to its field: strings parse into
// numbers and bools, ints widen to floats, and a field implementing encoding.TextUnmarshaler (such as a duration type) takes a string. Errors name the source and
// the key.
package cascade
