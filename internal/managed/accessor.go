// Package managed reads and searches the object tables returned by
// org.freedesktop.DBus.ObjectManager.GetManagedObjects calls. Accessors and
// queries are built once from an introspection specification; malformed
// specifications fail at construction, while gaps in the tables themselves
// surface when reading or searching.
package managed

import (
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"

	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
)

// Accessor reads one interface's property values out of per-object tables.
type Accessor struct {
	iface string
	props map[string]struct{}
}

// NewAccessor builds an accessor for the given interface specification.
func NewAccessor(iface *introspect.Interface) (*Accessor, error) {
	if iface.Name == "" {
		return nil, introspect.ErrNoInterfaceName
	}

	props := make(map[string]struct{}, len(iface.Properties))
	for _, prop := range iface.Properties {
		if prop.Name == "" {
			return nil, fmt.Errorf("%w: interface %q", introspect.ErrNoPropertyName, iface.Name)
		}
		props[prop.Name] = struct{}{}
	}

	return &Accessor{iface: iface.Name, props: props}, nil
}

// Interface returns the interface name the accessor reads.
func (a *Accessor) Interface() string {
	return a.iface
}

// Properties returns the declared property names in sorted order.
func (a *Accessor) Properties() []string {
	names := make([]string, 0, len(a.props))
	for name := range a.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// View binds the accessor to one object's table. The object must implement
// the accessor's interface.
func (a *Accessor) View(table ObjectTable) (*View, error) {
	values, ok := table[a.iface]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingInterface, a.iface)
	}
	return &View{iface: a.iface, props: a.props, values: values}, nil
}

// View exposes the property values one object carries for one interface.
type View struct {
	iface  string
	props  map[string]struct{}
	values map[string]dbus.Variant
}

// Value returns the value of one declared property.
func (v *View) Value(name string) (dbus.Variant, error) {
	if _, ok := v.props[name]; !ok {
		return dbus.Variant{}, fmt.Errorf("%w: %q on %q", ErrUnknownProperty, name, v.iface)
	}
	value, ok := v.values[name]
	if !ok {
		return dbus.Variant{}, fmt.Errorf("%w: interface %q property %q", ErrMissingProperty, v.iface, name)
	}
	return value, nil
}

// MustValue is Value for properties the caller knows are present, as in
// generated bindings over freshly fetched tables.
func (v *View) MustValue(name string) dbus.Variant {
	value, err := v.Value(name)
	if err != nil {
		panic(err)
	}
	return value
}
