package managed

import (
	"github.com/godbus/dbus/v5"
)

// ObjectTable is one object's slice of a GetManagedObjects result: property
// values keyed by property name, keyed by implemented interface name.
type ObjectTable map[string]map[string]dbus.Variant

// ManagedObjects is the full result of an ObjectManager.GetManagedObjects
// call, keyed by object path.
type ManagedObjects map[dbus.ObjectPath]ObjectTable

// Copy returns a deep copy of the table down to the variant values.
func (t ObjectTable) Copy() ObjectTable {
	if t == nil {
		return nil
	}
	out := make(ObjectTable, len(t))
	for iface, props := range t {
		cp := make(map[string]dbus.Variant, len(props))
		for name, value := range props {
			cp[name] = value
		}
		out[iface] = cp
	}
	return out
}

// Copy returns a deep copy of the managed objects map.
func (m ManagedObjects) Copy() ManagedObjects {
	if m == nil {
		return nil
	}
	out := make(ManagedObjects, len(m))
	for path, table := range m {
		out[path] = table.Copy()
	}
	return out
}
