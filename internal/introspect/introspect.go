// Package introspect models D-Bus introspection data in the format returned
// by org.freedesktop.DBus.Introspectable.Introspect and validates it for use
// by accessor construction and binding generation.
package introspect

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/stratis-storage/go-dbus-client-gen/internal/signature"
)

var (
	// ErrNoInterfaceName indicates an interface element without a name attribute.
	ErrNoInterfaceName = errors.New("interface has no name attribute")
	// ErrNoPropertyName indicates a property element without a name attribute.
	ErrNoPropertyName = errors.New("property has no name attribute")
	// ErrNoMemberName indicates a method or signal element without a name attribute.
	ErrNoMemberName = errors.New("member has no name attribute")
	// ErrBadPropertyType indicates a property whose type is not one complete signature.
	ErrBadPropertyType = errors.New("property type is not a single complete signature")
	// ErrBadArgType indicates an argument whose type is not one complete signature.
	ErrBadArgType = errors.New("argument type is not a single complete signature")
	// ErrBadAccess indicates a property access mode outside read, write and readwrite.
	ErrBadAccess = errors.New("property access must be read, write or readwrite")
	// ErrBadDirection indicates an argument direction outside in and out.
	ErrBadDirection = errors.New("argument direction must be in or out")
	// ErrInterfaceNotFound indicates a document that does not declare the
	// requested interface.
	ErrInterfaceNotFound = errors.New("interface not found in introspection data")
)

// Node is one object in the introspection tree.
type Node struct {
	XMLName    xml.Name    `xml:"node"`
	Name       string      `xml:"name,attr"`
	Interfaces []Interface `xml:"interface"`
	Children   []Node      `xml:"node"`
}

// Interface describes one D-Bus interface.
type Interface struct {
	Name        string       `xml:"name,attr"`
	Methods     []Method     `xml:"method"`
	Properties  []Property   `xml:"property"`
	Signals     []Signal     `xml:"signal"`
	Annotations []Annotation `xml:"annotation"`
}

// Property describes one exported property.
type Property struct {
	Name   string `xml:"name,attr"`
	Type   string `xml:"type,attr"`
	Access string `xml:"access,attr"`
}

// Method describes one callable member.
type Method struct {
	Name string `xml:"name,attr"`
	Args []Arg  `xml:"arg"`
}

// Signal describes one emitted signal.
type Signal struct {
	Name string `xml:"name,attr"`
	Args []Arg  `xml:"arg"`
}

// Arg describes one method or signal argument.
type Arg struct {
	Name      string `xml:"name,attr"`
	Type      string `xml:"type,attr"`
	Direction string `xml:"direction,attr"`
}

// Annotation carries a name/value pair attached to an element.
type Annotation struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Readable reports whether the property can be fetched by clients.
func (p Property) Readable() bool {
	return p.Access == "read" || p.Access == "readwrite"
}

// Writable reports whether the property can be set by clients.
func (p Property) Writable() bool {
	return p.Access == "write" || p.Access == "readwrite"
}

// Parse decodes one introspection document and validates every interface in
// the tree.
func Parse(r io.Reader) (*Node, error) {
	var node Node
	if err := xml.NewDecoder(r).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode introspection XML: %w", err)
	}
	if err := validateNode(&node); err != nil {
		return nil, err
	}
	return &node, nil
}

// ParseInterface decodes one introspection document and returns the named
// interface. An empty name selects the document's only interface; with an
// empty name a document declaring several interfaces is an error.
func ParseInterface(r io.Reader, name string) (*Interface, error) {
	node, err := Parse(r)
	if err != nil {
		return nil, err
	}

	ifaces := node.AllInterfaces()
	if name == "" {
		if len(ifaces) != 1 {
			return nil, fmt.Errorf("%w: document declares %d interfaces, name required",
				ErrInterfaceNotFound, len(ifaces))
		}
		return &ifaces[0], nil
	}

	for i := range ifaces {
		if ifaces[i].Name == name {
			return &ifaces[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInterfaceNotFound, name)
}

// AllInterfaces flattens the node tree into the interfaces it declares, in
// document order.
func (n *Node) AllInterfaces() []Interface {
	out := make([]Interface, 0, len(n.Interfaces))
	out = append(out, n.Interfaces...)
	for i := range n.Children {
		out = append(out, n.Children[i].AllInterfaces()...)
	}
	return out
}

func validateNode(n *Node) error {
	for i := range n.Interfaces {
		if err := Validate(&n.Interfaces[i]); err != nil {
			return err
		}
	}
	for i := range n.Children {
		if err := validateNode(&n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks one interface for the constraints accessor construction
// and binding generation rely on.
func Validate(iface *Interface) error {
	if iface.Name == "" {
		return ErrNoInterfaceName
	}

	for _, prop := range iface.Properties {
		if prop.Name == "" {
			return fmt.Errorf("%w: interface %q", ErrNoPropertyName, iface.Name)
		}
		if _, err := signature.ParseSingle(prop.Type); err != nil {
			return fmt.Errorf("%w: interface %q property %q: %v",
				ErrBadPropertyType, iface.Name, prop.Name, err)
		}
		switch prop.Access {
		case "read", "write", "readwrite":
		default:
			return fmt.Errorf("%w: interface %q property %q has %q",
				ErrBadAccess, iface.Name, prop.Name, prop.Access)
		}
	}

	for _, m := range iface.Methods {
		if m.Name == "" {
			return fmt.Errorf("%w: method on interface %q", ErrNoMemberName, iface.Name)
		}
		if err := validateArgs(iface.Name, m.Name, m.Args, false); err != nil {
			return err
		}
	}

	for _, s := range iface.Signals {
		if s.Name == "" {
			return fmt.Errorf("%w: signal on interface %q", ErrNoMemberName, iface.Name)
		}
		if err := validateArgs(iface.Name, s.Name, s.Args, true); err != nil {
			return err
		}
	}

	return nil
}

func validateArgs(iface, member string, args []Arg, signal bool) error {
	for _, arg := range args {
		if _, err := signature.ParseSingle(arg.Type); err != nil {
			return fmt.Errorf("%w: interface %q member %q arg %q: %v",
				ErrBadArgType, iface, member, arg.Name, err)
		}
		switch arg.Direction {
		case "":
		case "out":
		case "in":
			// Signal arguments are always emitted, never supplied.
			if signal {
				return fmt.Errorf("%w: interface %q signal %q arg %q",
					ErrBadDirection, iface, member, arg.Name)
			}
		default:
			return fmt.Errorf("%w: interface %q member %q arg %q has %q",
				ErrBadDirection, iface, member, arg.Name, arg.Direction)
		}
	}
	return nil
}
