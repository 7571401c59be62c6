package cascade

import (
	"encoding"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Loader is an ordered list of configuration sources, lowest priority first. The zero value is ready to use.
type Loader struct {
	sources []source
}

// New returns an empty Loader, for chaining.
func New() *Loader {
	return &Loader{}
}

// WithDefaults adds m as a source. Keys may be dotted ("match.error_ratio").
func (c *Loader) WithDefaults(m map[string]any) *Loader {
	c.sources = append(c.sources, defaultsSource{m: m})
	return c
}

// WithTOMLFile adds the TOML file at path. The file is read by StrictlyLoad; a missing file is skipped.
func (c *Loader) WithTOMLFile(path string) *Loader {
	c.sources = append(c.sources, tomlFileSource{path: path})
	return c
}

// WithNearestTOMLFile searches dir and its ancestors for the first non-empty file at the relative path fileName and adds it, if found. It panics if fileName is
// absolute.
func (c *Loader) WithNearestTOMLFile(fileName, dir string) *Loader {
	if filepath.IsAbs(fileName) {
		panic("cascade: WithNearestTOMLFile needs a relative fileName")
	}
	for {
		p := filepath.Join(dir, fileName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() && st.Size() > 0 {
			return c.WithTOMLFile(p)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return c
		}
		dir = parent
	}
}

// WithEnv adds environment variables, mapping config keys to variable names. getenv is typically os.Getenv; nil means os.Getenv.
func (c *Loader) WithEnv(getenv func(string) string, keys map[string]string) *Loader {
	if getenv == nil {
		getenv = os.Getenv
	}
	c.sources = append(c.sources, envSource{getenv: getenv, keys: keys})
	return c
}

// WithFlags adds the flags of fs that were set on the command line, mapping config keys to flag names. fs must be parsed before StrictlyLoad.
func (c *Loader) WithFlags(fs *pflag.FlagSet, keys map[string]string) *Loader {
	c.sources = append(c.sources, flagSource{fs: fs, keys: keys})
	return c
}

// StrictlyLoad applies every source to dest, a pointer to a struct, in priority order. It stops at the first source that cannot be read or parsed, that sets an
// unknown key, or whose value does not fit its field.
func (c *Loader) StrictlyLoad(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cascade: dest must be a non-nil pointer to a struct, got %T", dest)
	}
	for _, src := range c.sources {
		m, err := src.values()
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name(), err)
		}
		if err := applyTable(v.Elem(), m, ""); err != nil {
			return fmt.Errorf("%s: %w", src.Name(), err)
		}
	}
	return nil
}

func fieldKey(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("toml"), ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

func applyTable(structVal reflect.Value, m map[string]any, base string) error {
	fields := map[string]int{}
	t := structVal.Type()
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			if key := fieldKey(f); key != "-" {
				fields[key] = i
			}
		}
	}

	for key, raw := range m {
		path := key
		if base != "" {
			path = base + "." + key
		}
		i, ok := fields[key]
		if !ok {
			return fmt.Errorf("unknown key %q", path)
		}
		if err := setField(structVal.Field(i), raw, path); err != nil {
			return err
		}
	}
	return nil
}

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

func setField(f reflect.Value, raw any, path string) error {
	if reflect.PointerTo(f.Type()).Implements(textUnmarshaler) {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%s: expected a string, got %T", path, raw)
		}
		if err := f.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}

	switch f.Kind() {
	case reflect.Struct:
		table, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected a table, got %T", path, raw)
		}
		return applyTable(f, table, path)
	case reflect.String:
		switch v := raw.(type) {
		case string:
			f.SetString(v)
		case int, float64, bool:
			f.SetString(fmt.Sprint(v))
		default:
			return fmt.Errorf("%s: cannot use %T as a string", path, raw)
		}
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			f.SetBool(v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %q is not a bool", path, v)
			}
			f.SetBool(b)
		default:
			return fmt.Errorf("%s: cannot use %T as a bool", path, raw)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := raw.(type) {
		case int:
			f.SetInt(int64(v))
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", path, v)
			}
			f.SetInt(n)
		default:
			return fmt.Errorf("%s: cannot use %T as an integer", path, raw)
		}
	case reflect.Float32, reflect.Float64:
		switch v := raw.(type) {
		case float64:
			f.SetFloat(v)
		case int:
			f.SetFloat(float64(v))
		case string:
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %q is not a number", path, v)
			}
			f.SetFloat(x)
		default:
			return fmt.Errorf("%s: cannot use %T as a number", path, raw)
		}
	default:
		return fmt.Errorf("%s: unsupported field type %s", path, f.Type())
	}
	return nil
}
