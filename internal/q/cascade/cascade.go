package cascade

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"
)

// Source kinds reported in Provenance.
const (
	SourceDefault  = "default"
	SourceJSONFile = "json_file"
	SourceDotEnv   = "dotenv"
	SourceEnv      = "env"
)

// Provenance records which source set a key.
type Provenance struct {
	Source     string `json:"source"`               // one of the Source* constants
	Identifier string `json:"identifier,omitempty"` // file path for file sources
}

// IsSet reports whether any source set the key.
func (p Provenance) IsSet() bool {
	return p.Source != ""
}

// Default reports whether the key's value is a default.
func (p Provenance) Default() bool {
	return p.Source == SourceDefault
}

// Loader is a prioritized list of sources. The zero value is ready to use.
type Loader struct {
	sources    []source
	provenance map[string]Provenance
}

// New returns an empty Loader.
func New() *Loader {
	return &Loader{}
}

// WithDefaults adds m as a source. Keys may be dotted or nested maps. Register defaults first.
func (c *Loader) WithDefaults(m map[string]any) *Loader {
	c.sources = append(c.sources, &mapSource{kind: SourceDefault, m: m})
	return c
}

// WithJSONFile adds the JSON object in path (expanded with ExpandPath) as a source. The file is read by StrictlyLoad.
func (c *Loader) WithJSONFile(path string) *Loader {
	c.sources = append(c.sources, &jsonFileSource{path: path})
	return c
}

// WithNearestJSONFile adds the nearest fileName at or above start (see FindNearest), if any.
func (c *Loader) WithNearestJSONFile(fileName, start string) *Loader {
	if p := FindNearest(fileName, start); p != "" {
		c.sources = append(c.sources, &jsonFileSource{path: p})
	}
	return c
}

// WithNearestDotEnv adds the nearest dotenv file fileName at or above start, if any. envByKey maps config keys to variable names, as in WithEnv.
func (c *Loader) WithNearestDotEnv(fileName, start string, envByKey map[string]string) *Loader {
	if p := FindNearest(fileName, start); p != "" {
		c.sources = append(c.sources, &envSource{kind: SourceDotEnv, path: p, envByKey: envByKey})
	}
	return c
}

// WithEnv adds the process environment as a source. envByKey maps config keys to variable names (ex: {"maxhistory": "BLOCKDIFF_MAXHISTORY"}). Unset variables
// are skipped.
func (c *Loader) WithEnv(envByKey map[string]string) *Loader {
	c.sources = append(c.sources, &envSource{kind: SourceEnv, envByKey: envByKey})
	return c
}

// Provenance returns the source that last set key during StrictlyLoad.
func (c *Loader) Provenance(key string) Provenance {
	return c.provenance[strings.ToLower(key)]
}

// StrictlyLoad applies every source to dest, a non-nil pointer to a struct, lowest priority first. Fields tagged `cascade:",required"` must be set by some source.
func (c *Loader) StrictlyLoad(dest any) error {
	v := reflect.ValueOf(dest)
	if dest == nil || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a non-nil pointer to struct")
	}
	fields := map[string]reflect.Value{}
	required := map[string]bool{}
	if err := collectFields(v.Elem(), "", fields, required); err != nil {
		return err
	}

	c.provenance = map[string]Provenance{}
	for _, src := range c.sources {
		prov := src.provenance()
		name := prov.Source
		if prov.Identifier != "" {
			name += " " + prov.Identifier
		}

		vals, err := src.values()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				continue
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		for key, raw := range vals {
			f, ok := fields[key]
			if !ok || raw == nil {
				continue
			}
			if err := setValue(f, raw, key); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			c.provenance[key] = prov
		}
	}

	for key := range required {
		if !c.provenance[key].IsSet() {
			return fmt.Errorf("missing required key: %s", key)
		}
	}
	return nil
}

// fieldKey returns the key for f: the cascade tag name, else the json tag name, else the field name; lowercased. "-" skips the field.
func fieldKey(f reflect.StructField) (key string, required bool) {
	if tag := f.Tag.Get("cascade"); tag != "" {
		parts := strings.Split(tag, ",")
		key = strings.TrimSpace(parts[0])
		for _, p := range parts[1:] {
			if strings.TrimSpace(p) == "required" {
				required = true
			}
		}
	}
	if key == "" {
		if tag := f.Tag.Get("json"); tag != "" {
			if name, _, _ := strings.Cut(tag, ","); name != "-" {
				key = name
			}
		}
	}
	if key == "" {
		key = f.Name
	}
	return strings.ToLower(key), required
}

// collectFields indexes the settable leaf fields of structVal by dotted key, recursing into nested structs.
func collectFields(structVal reflect.Value, prefix string, fields map[string]reflect.Value, required map[string]bool) error {
	t := structVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := structVal.Field(i)
		if !fv.CanSet() {
			continue
		}
		key, req := fieldKey(f)
		if key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if fv.Kind() == reflect.Struct {
			if err := collectFields(fv, key, fields, required); err != nil {
				return err
			}
			continue
		}
		if _, dup := fields[key]; dup {
			return fmt.Errorf("struct contains field key collision for %q", key)
		}
		fields[key] = fv
		if req {
			required[key] = true
		}
	}
	return nil
}

func setValue(f reflect.Value, raw any, key string) error {
	switch f.Kind() {
	case reflect.String, reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		v, err := coerceScalar(raw, f.Kind(), key)
		if err != nil {
			return err
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(v.(string))
		case reflect.Bool:
			f.SetBool(v.(bool))
		case reflect.Float32, reflect.Float64:
			f.SetFloat(v.(float64))
		default:
			n := v.(int64)
			if f.OverflowInt(n) {
				return fmt.Errorf("%s: %d overflows %s", key, n, f.Kind())
			}
			f.SetInt(n)
		}
		return nil
	case reflect.Slice:
		if f.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%s: unsupported slice element type %s", key, f.Type().Elem().Kind())
		}
		var strs []string
		switch v := raw.(type) {
		case []string:
			strs = append([]string{}, v...)
		case string:
			// Environment values are comma-separated.
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					strs = append(strs, s)
				}
			}
		default:
			return fmt.Errorf("%s: cannot coerce %T to []string", key, raw)
		}
		sv := reflect.MakeSlice(f.Type(), len(strs), len(strs))
		for i, s := range strs {
			sv.Index(i).SetString(s)
		}
		f.Set(sv)
		return nil
	default:
		return fmt.Errorf("%s: unsupported field kind %s", key, f.Kind())
	}
}

// coerceScalar converts raw to a string, bool, int64, or float64 for a field of kind k. Strings are parsed; numbers are formatted; floats truncate to ints.
func coerceScalar(raw any, k reflect.Kind, key string) (any, error) {
	switch k {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%s: cannot parse bool from %q", key, v)
			}
			return b, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: cannot parse int from %q", key, v)
			}
			return n, nil
		}
	case reflect.Float32, reflect.Float64:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: cannot parse float from %q", key, v)
			}
			return f, nil
		}
	default:
		return nil, fmt.Errorf("%s: unsupported scalar kind %s", key, k)
	}
	return nil, fmt.Errorf("%s: cannot coerce %T to %s", key, raw, k)
}
