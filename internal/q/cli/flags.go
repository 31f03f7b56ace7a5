package cli

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FlagSet holds the flags declared on a command.
type FlagSet struct {
	byName  map[string]*flag
	byShort map[rune]*flag
}

type flag struct {
	name     string
	short    rune // 0 if none
	usage    string
	typeName string // shown in help; "" for bools
	def      string // shown in help when non-zero
	isBool   bool
	set      func(raw string) error
}

func newFlagSet() *FlagSet {
	return &FlagSet{byName: map[string]*flag{}, byShort: map[rune]*flag{}}
}

// Bool declares a boolean flag. "--name" sets it to true; "--name=false" or "--name false" sets it explicitly.
func (fs *FlagSet) Bool(name string, short rune, def bool, usage string) *bool {
	p := &def
	fs.add(&flag{name: name, short: short, usage: usage, isBool: true, set: func(raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}})
	return p
}

// String declares a string flag.
func (fs *FlagSet) String(name string, short rune, def string, usage string) *string {
	p := &def
	fs.add(&flag{name: name, short: short, usage: usage, typeName: "string", def: def, set: func(raw string) error {
		*p = raw
		return nil
	}})
	return p
}

// Int declares an integer flag.
func (fs *FlagSet) Int(name string, short rune, def int, usage string) *int {
	p := &def
	d := ""
	if def != 0 {
		d = strconv.Itoa(def)
	}
	fs.add(&flag{name: name, short: short, usage: usage, typeName: "int", def: d, set: func(raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}})
	return p
}

// Duration declares a flag parsed with time.ParseDuration.
func (fs *FlagSet) Duration(name string, short rune, def time.Duration, usage string) *time.Duration {
	p := &def
	d := ""
	if def != 0 {
		d = def.String()
	}
	fs.add(&flag{name: name, short: short, usage: usage, typeName: "duration", def: d, set: func(raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}})
	return p
}

// Enum declares a string flag restricted to allowed. def should be one of allowed (or "" to mean unset).
func (fs *FlagSet) Enum(name string, short rune, def string, allowed []string, usage string) *string {
	p := &def
	fs.add(&flag{name: name, short: short, usage: usage, typeName: strings.Join(allowed, "|"), def: def, set: func(raw string) error {
		if !slices.Contains(allowed, raw) {
			return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
		}
		*p = raw
		return nil
	}})
	return p
}

func (fs *FlagSet) add(f *flag) {
	if f.name == "" {
		panic("cli: flag name must be non-empty")
	}
	if _, ok := fs.byName[f.name]; ok {
		panic("cli: duplicate flag: --" + f.name)
	}
	if f.short != 0 {
		if _, ok := fs.byShort[f.short]; ok {
			panic(fmt.Sprintf("cli: duplicate shorthand flag: -%c", f.short))
		}
		fs.byShort[f.short] = f
	}
	fs.byName[f.name] = f
}

// activeFlags merges persistent flags from the root down to c with c's local flags. It panics on a conflict, which is a programming error in the tree.
func (c *Command) activeFlags() *FlagSet {
	active := newFlagSet()
	merge := func(fs *FlagSet) {
		if fs == nil {
			return
		}
		for _, f := range fs.byName {
			if existing, ok := active.byName[f.name]; ok && existing != f {
				panic("cli: flag name conflict across command path: --" + f.name)
			}
			if existing, ok := active.byShort[f.short]; ok && f.short != 0 && existing != f {
				panic(fmt.Sprintf("cli: shorthand conflict across command path: -%c", f.short))
			}
			active.byName[f.name] = f
			if f.short != 0 {
				active.byShort[f.short] = f
			}
		}
	}
	for _, cmd := range c.path() {
		merge(cmd.persistentFlags)
	}
	merge(c.localFlags)
	return active
}

// sorted returns the flags ordered by name.
func (fs *FlagSet) sorted() []*flag {
	out := make([]*flag, 0, len(fs.byName))
	for _, f := range fs.byName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// parseFlag handles argv[i], a flag token, and returns how many following tokens it consumed.
func (fs *FlagSet) parseFlag(argv []string, i int) (int, error) {
	token := argv[i]
	var (
		f        *flag
		value    string
		hasValue bool
	)
	switch {
	case strings.HasPrefix(token, "--"):
		name, v, ok := strings.Cut(token[2:], "=")
		f, value, hasValue = fs.byName[name], v, ok
	case len(token) == 2 || token[2] == '=':
		// -x or -x=value
		r := rune(token[1])
		f = fs.byShort[r]
		if len(token) > 2 {
			value, hasValue = token[3:], true
		}
	default:
		// -name or -name=value
		name, v, ok := strings.Cut(token[1:], "=")
		f, value, hasValue = fs.byName[name], v, ok
	}
	if f == nil {
		return 0, usageErrorf("unknown flag: %s", token)
	}

	consumed := 0
	if !hasValue {
		next, hasNext := "", i+1 < len(argv)
		if hasNext {
			next = argv[i+1]
		}
		switch {
		case f.isBool:
			value = "true"
			if _, err := strconv.ParseBool(next); hasNext && err == nil {
				value, consumed = next, 1
			}
		case !hasNext:
			return 0, usageErrorf("flag needs a value: %s", token)
		case next == "--":
			return 0, usageErrorf("flag needs a value before --: %s", token)
		default:
			value, consumed = next, 1
		}
	}

	if err := f.set(value); err != nil {
		return 0, usageErrorf("invalid value for %s: %v", f.display(), err)
	}
	return consumed, nil
}

func (f *flag) display() string {
	if f.short != 0 {
		return fmt.Sprintf("-%c/--%s", f.short, f.name)
	}
	return "--" + f.name
}
