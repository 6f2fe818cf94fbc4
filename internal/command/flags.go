package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FlagType selects how a flag value is validated.
type FlagType int

const (
	FlagString FlagType = iota
	FlagEnum
	FlagInt
)

// FlagSpec describes one recognized flag. Message is the validation error
// text; a %s verb in it receives the comma separated allowed set.
type FlagSpec struct {
	Name    string
	Type    FlagType
	Allowed []string
	Min     int
	Max     int
	Message string
}

// Grammar is the closed set of flags a command understands.
type Grammar struct {
	Command string
	specs   map[string]FlagSpec
}

// NewGrammar builds a grammar for command from specs.
func NewGrammar(command string, specs ...FlagSpec) Grammar {
	g := Grammar{Command: command, specs: make(map[string]FlagSpec, len(specs))}
	for _, spec := range specs {
		g.specs[strings.ToLower(spec.Name)] = spec
	}
	return g
}

// Lookup returns the spec for name.
func (g Grammar) Lookup(name string) (FlagSpec, bool) {
	spec, ok := g.specs[strings.ToLower(name)]
	return spec, ok
}

// Value is a validated flag value. Int is set for FlagInt specs.
type Value struct {
	Raw string
	Int int
}

// Flags holds validated flag values plus the names of flags that were
// present but not part of the grammar.
type Flags struct {
	values  map[string]Value
	unknown []string
}

// Has reports whether name was given.
func (f Flags) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// String returns the value of name, or "".
func (f Flags) String(name string) string {
	return f.values[name].Raw
}

// StringOr returns the value of name, or fallback when absent.
func (f Flags) StringOr(name string, fallback string) string {
	if v, ok := f.values[name]; ok {
		return v.Raw
	}
	return fallback
}

// Int returns the integer value of name.
func (f Flags) Int(name string) (int, bool) {
	v, ok := f.values[name]
	return v.Int, ok
}

// Len returns the number of recognized flags.
func (f Flags) Len() int {
	return len(f.values)
}

// Unknown returns flag names that were left in the text.
func (f Flags) Unknown() []string {
	return f.unknown
}

var flagPattern = regexp.MustCompile(`--([\w-]+)\s+("([^"]+)"|'([^']+)'|(\S+))`)

// ParseFlags extracts the flags of g from raw. Recognized flags are
// validated and removed from the returned text; unrecognized ones stay.
// Whitespace in the remaining text is collapsed.
func ParseFlags(raw string, g Grammar) (string, Flags, error) {
	flags := Flags{values: map[string]Value{}}
	var cleaned strings.Builder
	last := 0

	for _, m := range flagPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := strings.ToLower(raw[m[2]:m[3]])
		spec, ok := g.Lookup(name)
		if !ok {
			flags.unknown = append(flags.unknown, name)
			continue
		}
		value := submatch(raw, m, 3)
		if value == "" {
			value = submatch(raw, m, 4)
		}
		if value == "" {
			value = submatch(raw, m, 5)
		}

		validated, err := validateFlag(g.Command, spec, value)
		if err != nil {
			return "", Flags{}, err
		}
		flags.values[spec.Name] = validated

		cleaned.WriteString(raw[last:m[0]])
		cleaned.WriteByte(' ')
		last = m[1]
	}
	cleaned.WriteString(raw[last:])

	return strings.Join(strings.Fields(cleaned.String()), " "), flags, nil
}

func submatch(s string, m []int, group int) string {
	start, end := m[2*group], m[2*group+1]
	if start < 0 {
		return ""
	}
	return s[start:end]
}

func validateFlag(command string, spec FlagSpec, value string) (Value, error) {
	switch spec.Type {
	case FlagEnum:
		for _, allowed := range spec.Allowed {
			if strings.EqualFold(allowed, value) {
				return Value{Raw: allowed}, nil
			}
		}
		return Value{}, newValidationError(command, spec, value, spec.Allowed)
	case FlagInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < spec.Min || n > spec.Max {
			return Value{}, newValidationError(command, spec, value, intRange(spec.Min, spec.Max))
		}
		return Value{Raw: value, Int: n}, nil
	default:
		return Value{Raw: value}, nil
	}
}

func newValidationError(command string, spec FlagSpec, value string, allowed []string) *ValidationError {
	msg := spec.Message
	if msg == "" {
		msg = fmt.Sprintf("Nilai --%s tidak valid. Pilih dari: %%s", spec.Name)
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, strings.Join(allowed, ", "))
	}
	return &ValidationError{
		Command: command,
		Flag:    spec.Name,
		Value:   value,
		Allowed: allowed,
		message: msg,
	}
}

func intRange(lo, hi int) []string {
	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}
