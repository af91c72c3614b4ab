package value

import (
	"strings"

	"golang.org/x/text/cases"
)

// caseFolder implements the `~` operator's whitespace/case-insensitive
// string comparison, grounded on aretext-aretext/state/search.go's use of
// golang.org/x/text/cases for case-insensitive text search.
var caseFolder = cases.Fold()

// Equal implements FHIRPath strict equality `=` between two items
// (spec.md §4.E): numeric cross-kind comparison promotes Integer to
// Decimal, strings compare byte-for-byte, structural values compare
// recursively, and date/time values must be exactly precision-matched.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Integer:
		switch bv := b.(type) {
		case Integer:
			return av == bv
		case Decimal:
			return DecimalFromInt64(int64(av)).Cmp(bv) == 0
		}
		return false
	case Decimal:
		switch bv := b.(type) {
		case Decimal:
			return av.Cmp(bv) == 0
		case Integer:
			return av.Cmp(DecimalFromInt64(int64(bv))) == 0
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Date:
		bv, ok := b.(Date)
		return ok && av.T == bv.T && CompareTemporal(av.T, bv.T) == CompareEqual
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && CompareTemporal(av.T, bv.T) == CompareEqual && av.T.Precision == bv.T.Precision
	case Time:
		bv, ok := b.(Time)
		return ok && CompareTemporal(av.T, bv.T) == CompareEqual && av.T.Precision == bv.T.Precision
	case Quantity:
		bv, ok := b.(Quantity)
		return ok && av.Unit == bv.Unit && av.Value.Cmp(bv.Value) == 0
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, av1 := range av.Fields {
			bv1, ok := bv.Fields[k]
			if !ok || !CollectionsEqual(av1, bv1) {
				return false
			}
		}
		return true
	case Sequence:
		bv, ok := b.(Sequence)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equivalent implements FHIRPath `~`: order-insensitive for collections
// (handled by the caller), and for strings case/whitespace-insensitive;
// decimals (and a decimal against an integer) are equivalent when their
// numeric values are equal; they are not rounded to the lesser of the
// two precisions first.
func Equivalent(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		if !ok {
			return false
		}
		return normalizeForEquivalence(string(av)) == normalizeForEquivalence(string(bv))
	case Decimal:
		switch bv := b.(type) {
		case Decimal:
			return decimalEquivalent(av, bv)
		case Integer:
			return decimalEquivalent(av, DecimalFromInt64(int64(bv)))
		}
		return false
	case Integer:
		if bv, ok := b.(Decimal); ok {
			return decimalEquivalent(DecimalFromInt64(int64(av)), bv)
		}
		return Equal(a, b)
	case Date:
		bv, ok := b.(Date)
		return ok && CompareTemporal(av.T, bv.T) == CompareEqual
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && CompareTemporal(av.T, bv.T) == CompareEqual
	case Time:
		bv, ok := b.(Time)
		return ok && CompareTemporal(av.T, bv.T) == CompareEqual
	default:
		return Equal(a, b)
	}
}

func normalizeForEquivalence(s string) string {
	fields := strings.Fields(s)
	return caseFolder.String(strings.Join(fields, " "))
}

func decimalEquivalent(a, b Decimal) bool {
	return a.Cmp(b) == 0
}

// CollectionsEqual implements `=` across whole collections: element-wise
// in order, both sides must have equal length.
func CollectionsEqual(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CollectionsEquivalent implements `~` across whole collections:
// order-insensitive multiset comparison using Equivalent per element.
func CollectionsEquivalent(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if used[j] {
				continue
			}
			if Equivalent(av, bv) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
