// Package value implements the FHIRPath runtime value model (spec.md §3):
// collections of typed items over which the Evaluator operates. Every
// FHIRPath expression denotes a Collection; there is no bare scalar type
// at the evaluation boundary, only collections that happen to hold one
// item.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the concrete shape of a Value, mirroring the closed
// set of value kinds in spec.md §3.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindDecimal
	KindString
	KindDate
	KindDateTime
	KindTime
	KindQuantity
	KindMap
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindDecimal:
		return "Decimal"
	case KindString:
		return "String"
	case KindDate:
		return "Date"
	case KindDateTime:
		return "DateTime"
	case KindTime:
		return "Time"
	case KindQuantity:
		return "Quantity"
	case KindMap:
		return "Map"
	case KindSequence:
		return "Sequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single item in a Collection. Concrete implementations are
// Boolean, Integer, Decimal, String, Date, DateTime, Time, Quantity, Map
// and Sequence. Values are immutable once constructed.
type Value interface {
	Kind() Kind
	String() string
}

// Structural reports whether a Value is a Map or Sequence, i.e. can be
// navigated into by Identifier property access (spec.md §4.E).
func Structural(v Value) bool {
	k := v.Kind()
	return k == KindMap || k == KindSequence
}

// Boolean is a FHIRPath boolean value.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Integer is a 64-bit FHIRPath integer value.
type Integer int64

func (Integer) Kind() Kind      { return KindInteger }
func (i Integer) String() string { return fmt.Sprintf("%d", int64(i)) }

// String is a FHIRPath string value.
type String string

func (String) Kind() Kind        { return KindString }
func (s String) String() string  { return string(s) }

// Map is a structural value: a named field lookup over nested values,
// modeling a JSON object drawn from a resource tree.
type Map struct {
	Fields map[string]Collection
	// TypeName optionally records the resource/complex type this map was
	// constructed as, consulted by the type oracle for is/as/ofType.
	TypeName string
}

func (Map) Kind() Kind { return KindMap }

// String renders a debug label naming the Map's resource type (if any)
// and its field names in deterministic, sorted order so two runs of the
// same program never print a Map's fields in different orders because
// of Go's randomized map iteration.
func (m Map) String() string {
	return fmt.Sprintf("%s{%s}", m.typeLabel(), strings.Join(sortKeys(m.Fields), ", "))
}

func (m Map) typeLabel() string {
	if m.TypeName != "" {
		return m.TypeName
	}
	return "Map"
}

// Get looks up a named field, returning the empty collection if absent.
func (m Map) Get(name string) Collection {
	if m.Fields == nil {
		return nil
	}
	return m.Fields[name]
}

// Sequence is a structural value wrapping a bare JSON array that is not
// itself a field value (used for array-of-array or top-level array
// inputs before FromJSON normalizes them into a Collection).
type Sequence struct {
	Items []Value
}

func (Sequence) Kind() Kind { return KindSequence }
func (s Sequence) String() string {
	return fmt.Sprintf("Sequence[%d]", len(s.Items))
}

// sortKeys returns m's keys in sorted order, used by Map.String so its
// debug output is deterministic despite Go's randomized map iteration.
func sortKeys(m map[string]Collection) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
