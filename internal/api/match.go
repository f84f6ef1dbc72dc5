package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/stratis-storage/go-dbus-client-gen/internal/managed"
)

// jsonMatcher matches snapshot objects against property values that arrived
// as JSON, comparing both sides in their JSON rendering so that wire types
// such as uint64 line up with decoded JSON numbers.
type jsonMatcher struct {
	iface string
	props map[string]interface{}
}

func (m *jsonMatcher) Match(path dbus.ObjectPath, table managed.ObjectTable) (bool, error) {
	values, ok := table[m.iface]
	if !ok {
		return false, nil
	}

	for name, want := range m.props {
		got, ok := values[name]
		if !ok {
			return false, fmt.Errorf("%w: interface %q property %q on object %q",
				managed.ErrMissingProperty, m.iface, name, path)
		}
		if !jsonEqual(unwrapVariant(got.Value()), want) {
			return false, nil
		}
	}
	return true, nil
}

// jsonEqual compares two values by their canonical JSON encoding.
func jsonEqual(got, want interface{}) bool {
	gotJSON, err := json.Marshal(got)
	if err != nil {
		return false
	}
	wantJSON, err := json.Marshal(want)
	if err != nil {
		return false
	}
	return bytes.Equal(gotJSON, wantJSON)
}

// tableJSON renders one object table with variants unwrapped for JSON output.
func tableJSON(table managed.ObjectTable) objectJSON {
	out := make(objectJSON, len(table))
	for iface, props := range table {
		rendered := make(map[string]interface{}, len(props))
		for name, value := range props {
			rendered[name] = unwrapVariant(value.Value())
		}
		out[iface] = rendered
	}
	return out
}

// unwrapVariant recursively replaces dbus container values with plain Go
// values that encoding/json can render.
func unwrapVariant(value interface{}) interface{} {
	switch v := value.(type) {
	case dbus.Variant:
		return unwrapVariant(v.Value())
	case dbus.ObjectPath:
		return string(v)
	case dbus.Signature:
		return v.String()
	case map[string]dbus.Variant:
		out := make(map[string]interface{}, len(v))
		for name, entry := range v {
			out[name] = unwrapVariant(entry.Value())
		}
		return out
	case map[dbus.ObjectPath]dbus.Variant:
		out := make(map[string]interface{}, len(v))
		for path, entry := range v {
			out[string(path)] = unwrapVariant(entry.Value())
		}
		return out
	case []dbus.Variant:
		out := make([]interface{}, 0, len(v))
		for _, entry := range v {
			out = append(out, unwrapVariant(entry.Value()))
		}
		return out
	case []dbus.ObjectPath:
		out := make([]string, 0, len(v))
		for _, path := range v {
			out = append(out, string(path))
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, entry := range v {
			out = append(out, unwrapVariant(entry))
		}
		return out
	default:
		return value
	}
}
