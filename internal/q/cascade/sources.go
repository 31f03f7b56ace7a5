package cascade

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// source supplies flat configuration values: keys are lowercased dot-paths, values are string, bool, int, float64, or []string.
type source interface {
	provenance() Provenance
	values() (map[string]any, error)
}

type mapSource struct {
	kind string
	m    map[string]any
}

func (s *mapSource) provenance() Provenance { return Provenance{Source: s.kind} }

func (s *mapSource) values() (map[string]any, error) {
	out := map[string]any{}
	return out, flatten(out, "", s.m)
}

type jsonFileSource struct {
	path string
}

func (s *jsonFileSource) provenance() Provenance {
	return Provenance{Source: SourceJSONFile, Identifier: ExpandPath(s.path)}
}

func (s *jsonFileSource) values() (map[string]any, error) {
	data, err := os.ReadFile(ExpandPath(s.path))
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if strings.TrimSpace(string(data)) == "" {
		return out, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON must be an object")
	}
	return out, flatten(out, "", obj)
}

// envSource reads variables named by envByKey (config key -> variable name) from lookup.
type envSource struct {
	kind     string
	path     string // dotenv file, if any
	envByKey map[string]string
}

func (s *envSource) provenance() Provenance {
	p := Provenance{Source: s.kind}
	if s.path != "" {
		p.Identifier = ExpandPath(s.path)
	}
	return p
}

func (s *envSource) values() (map[string]any, error) {
	lookup := os.LookupEnv
	if s.path != "" {
		vars, err := godotenv.Read(ExpandPath(s.path))
		if err != nil {
			return nil, err
		}
		lookup = func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	out := map[string]any{}
	for key, name := range s.envByKey {
		if v, ok := lookup(name); ok {
			out[strings.ToLower(key)] = v
		}
	}
	return out, nil
}

// flatten writes m into out with dotted, lowercased keys. JSON arrays become []string when every element is a scalar.
func flatten(out map[string]any, prefix string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		val := m[k]
		switch v := val.(type) {
		case map[string]any:
			if err := flatten(out, key, v); err != nil {
				return err
			}
			continue
		case nil, string, bool, int, int64, float64, []string:
		case []any:
			strs := make([]string, len(v))
			for i, e := range v {
				s, err := coerceScalar(e, reflect.String, fmt.Sprintf("%s[%d]", key, i))
				if err != nil {
					return err
				}
				strs[i] = s.(string)
			}
			val = strs
		default:
			return fmt.Errorf("%s: type %T is not allowed", key, v)
		}
		if _, dup := out[key]; dup {
			return fmt.Errorf("key conflict: %q is set twice", key)
		}
		out[key] = val
	}
	return nil
}
