package value

import (
	"encoding/json"
	"fmt"
)

// FromJSON decodes a JSON document into the Collection it denotes as a
// FHIRPath evaluation input, grounded on the JSONToCollection ingestion
// pattern used by the robertoAraneda-gofhir FHIRPath evaluator: objects
// become Map values, arrays splice their elements into the surrounding
// collection (arrays are not themselves a FHIRPath value), and scalars
// map onto the closest Value kind.
func FromJSON(data []byte) (Collection, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return FromGo(raw)
}

// FromGo converts an already-decoded Go value (as produced by
// encoding/json, or assembled by a host directly) into a Collection
// using the same rules as FromJSON.
func FromGo(raw any) (Collection, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make(Collection, 0, len(v))
		for _, item := range v {
			c, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			out = append(out, c...)
		}
		return out, nil
	case map[string]any:
		m, err := mapFromGo(v)
		if err != nil {
			return nil, err
		}
		return Single(m), nil
	case string:
		return Single(String(v)), nil
	case bool:
		return Single(Boolean(v)), nil
	case float64:
		return Single(numberFromFloat(v)), nil
	case json.Number:
		return jsonNumberToCollection(v)
	default:
		return nil, fmt.Errorf("unsupported JSON value of type %T", raw)
	}
}

func mapFromGo(v map[string]any) (Map, error) {
	fields := make(map[string]Collection, len(v))
	typeName := ""
	if rt, ok := v["resourceType"].(string); ok {
		typeName = rt
	}
	for key, val := range v {
		c, err := FromGo(val)
		if err != nil {
			return Map{}, err
		}
		fields[key] = c
	}
	return Map{Fields: fields, TypeName: typeName}, nil
}

func numberFromFloat(f float64) Value {
	if f == float64(int64(f)) {
		return Integer(int64(f))
	}
	d, err := DecimalFromFloat64(f)
	if err != nil {
		return Integer(int64(f))
	}
	return d
}

func jsonNumberToCollection(n json.Number) (Collection, error) {
	if i, err := n.Int64(); err == nil {
		return Single(Integer(i)), nil
	}
	d, err := NewDecimal(n.String())
	if err != nil {
		return nil, fmt.Errorf("invalid numeric literal %q: %w", n.String(), err)
	}
	return Single(d), nil
}
