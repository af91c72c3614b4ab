package value

import "fmt"

// Quantity is a number paired with a unit string (spec.md §6: `5.4 'mg'`).
type Quantity struct {
	Value Decimal
	Unit  string
}

func (Quantity) Kind() Kind { return KindQuantity }
func (q Quantity) String() string {
	return fmt.Sprintf("%s '%s'", q.Value.String(), q.Unit)
}
