package value

// Collection is the universal FHIRPath value type (spec.md §3 Glossary):
// an ordered sequence of zero or more Values. The empty collection
// represents "unknown" throughout three-valued logic.
type Collection []Value

// Empty is the canonical empty collection.
var Empty Collection = nil

// Single wraps one Value as a singleton collection.
func Single(v Value) Collection { return Collection{v} }

// IsEmpty reports whether c has no elements.
func (c Collection) IsEmpty() bool { return len(c) == 0 }

// Singleton returns c's sole element and true, or (nil, false) if c does
// not have exactly one element (spec.md's "singleton coercion" rule).
func (c Collection) Singleton() (Value, bool) {
	if len(c) != 1 {
		return nil, false
	}
	return c[0], true
}

// SingletonBoolean coerces c to a bare bool for three-valued-logic
// evaluation sites (where/all/exists predicate results). ok is false if
// c is not a singleton Boolean.
func (c Collection) SingletonBoolean() (b bool, ok bool) {
	v, isSingle := c.Singleton()
	if !isSingle {
		return false, false
	}
	bv, isBool := v.(Boolean)
	if !isBool {
		return false, false
	}
	return bool(bv), true
}

// Concat appends all elements of other after c's, returning a new slice.
func (c Collection) Concat(other Collection) Collection {
	out := make(Collection, 0, len(c)+len(other))
	out = append(out, c...)
	out = append(out, other...)
	return out
}

// Union returns the set union of a and b with FHIRPath equivalence as
// the de-duplication relation, preserving order of first occurrence
// (spec.md §4.E).
func Union(a, b Collection) Collection {
	out := make(Collection, 0, len(a)+len(b))
	appendDistinct := func(v Value) {
		for _, existing := range out {
			if Equivalent(existing, v) {
				return
			}
		}
		out = append(out, v)
	}
	for _, v := range a {
		appendDistinct(v)
	}
	for _, v := range b {
		appendDistinct(v)
	}
	return out
}

// Distinct returns c with duplicate elements (by equivalence) removed,
// preserving order of first occurrence.
func Distinct(c Collection) Collection {
	return Union(c, nil)
}

// IsDistinct reports whether c has no duplicate elements by equivalence.
func IsDistinct(c Collection) bool {
	return len(Distinct(c)) == len(c)
}

// Intersect returns elements of a that are equivalent to some element of
// b, preserving a's order and de-duplicating the result.
func Intersect(a, b Collection) Collection {
	var out Collection
	for _, v := range a {
		inB := false
		for _, w := range b {
			if Equivalent(v, w) {
				inB = true
				break
			}
		}
		if !inB {
			continue
		}
		alreadyOut := false
		for _, w := range out {
			if Equivalent(v, w) {
				alreadyOut = true
				break
			}
		}
		if !alreadyOut {
			out = append(out, v)
		}
	}
	return out
}

// Exclude returns elements of a that are not equivalent to any element
// of b, preserving order and duplicates.
func Exclude(a, b Collection) Collection {
	var out Collection
	for _, v := range a {
		excluded := false
		for _, w := range b {
			if Equivalent(v, w) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether needle is equivalent to some element of c.
func Contains(c Collection, needle Value) bool {
	for _, v := range c {
		if Equivalent(v, needle) {
			return true
		}
	}
	return false
}
