// mutation.go
package plan

import (
	"fmt"
	"strings"
)

// Op is the kind of change a Mutation makes to a variable
type Op int

const (
	// OpAppend adds the value after existing content, separated by a space
	OpAppend Op = iota + 1
	// OpSet replaces the variable
	OpSet
	// OpOptLevel removes every -O flag from the variable, then appends the value
	OpOptLevel
)

// String returns the operation name
func (o Op) String() string {
	switch o {
	case OpAppend:
		return "append"
	case OpSet:
		return "set"
	case OpOptLevel:
		return "optlevel"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Mutation is one change to a build-time environment variable
type Mutation struct {
	Name  string `json:"name" yaml:"name"`
	Op    Op     `json:"op" yaml:"op"`
	Value string `json:"value" yaml:"value"`
}

// Mutations is an ordered set of environment changes
type Mutations []Mutation

// Append records an append of value to name. Empty values are dropped.
func (m *Mutations) Append(name, value string) {
	m.add(name, OpAppend, value)
}

// Set records an overwrite of name. Empty values are dropped.
func (m *Mutations) Set(name, value string) {
	m.add(name, OpSet, value)
}

// OptLevel records an optimization-level override on name
func (m *Mutations) OptLevel(name, level string) {
	m.add(name, OpOptLevel, level)
}

func (m *Mutations) add(name string, op Op, value string) {
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return
	}
	*m = append(*m, Mutation{Name: name, Op: op, Value: value})
}

// For returns the mutations applied to name, in order
func (m Mutations) For(name string) []Mutation {
	var out []Mutation
	for _, mu := range m {
		if mu.Name == name {
			out = append(out, mu)
		}
	}
	return out
}

// Clone returns an independent copy
func (m Mutations) Clone() Mutations {
	if m == nil {
		return nil
	}
	out := make(Mutations, len(m))
	copy(out, m)
	return out
}

// Apply returns environ with every mutation applied in order. environ is
// not modified. Variables keep their original position; new variables
// are added at the end.
func (m Mutations) Apply(environ []string) []string {
	out := make([]string, len(environ))
	copy(out, environ)

	index := make(map[string]int, len(out))
	for i, kv := range out {
		name, _, _ := strings.Cut(kv, "=")
		index[name] = i
	}

	for _, mu := range m {
		i, ok := index[mu.Name]
		current := ""
		if ok {
			_, current, _ = strings.Cut(out[i], "=")
		}

		next := mu.apply(current)
		if ok {
			out[i] = mu.Name + "=" + next
		} else {
			index[mu.Name] = len(out)
			out = append(out, mu.Name+"="+next)
		}
	}
	return out
}

func (mu Mutation) apply(current string) string {
	switch mu.Op {
	case OpSet:
		return mu.Value
	case OpOptLevel:
		return join(stripOptFlags(current), mu.Value)
	default:
		return join(current, mu.Value)
	}
}

func join(current, value string) string {
	current = strings.TrimSpace(current)
	if current == "" {
		return value
	}
	return current + " " + value
}

func stripOptFlags(flags string) string {
	fields := strings.Fields(flags)
	kept := fields[:0]
	for _, f := range fields {
		if isOptFlag(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// isOptFlag matches -O, -O0..-O4, -Os, -Oz and -Ofast
func isOptFlag(f string) bool {
	if !strings.HasPrefix(f, "-O") {
		return false
	}
	switch f[2:] {
	case "", "0", "1", "2", "3", "4", "s", "z", "fast":
		return true
	}
	return false
}
