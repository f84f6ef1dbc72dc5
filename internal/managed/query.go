package managed

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/godbus/dbus/v5"

	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
)

// Matcher selects objects from a ManagedObjects map.
type Matcher interface {
	Match(path dbus.ObjectPath, table ObjectTable) (bool, error)
}

// Match is one object selected by a search.
type Match struct {
	Path  dbus.ObjectPath
	Table ObjectTable
}

// Query matches objects that implement one interface and whose searched
// properties all equal the given values. Objects that do not implement the
// interface are non-matches; implementing objects missing a searched
// property are an error, since the table then contradicts the specification.
type Query struct {
	iface string
	props map[string]dbus.Variant
}

// NewQuery builds a query from an interface specification and the property
// values to search for. Every searched property must be declared by the
// specification.
func NewQuery(iface *introspect.Interface, props map[string]dbus.Variant) (*Query, error) {
	accessor, err := NewAccessor(iface)
	if err != nil {
		return nil, err
	}

	for name := range props {
		if _, ok := accessor.props[name]; !ok {
			return nil, fmt.Errorf("%w: %q on %q", ErrUnknownProperty, name, iface.Name)
		}
	}

	search := make(map[string]dbus.Variant, len(props))
	for name, value := range props {
		search[name] = value
	}

	return &Query{iface: iface.Name, props: search}, nil
}

// Match implements Matcher.
func (q *Query) Match(path dbus.ObjectPath, table ObjectTable) (bool, error) {
	values, ok := table[q.iface]
	if !ok {
		return false, nil
	}

	for name, want := range q.props {
		got, ok := values[name]
		if !ok {
			return false, fmt.Errorf("%w: interface %q property %q on object %q",
				ErrMissingProperty, q.iface, name, path)
		}
		if !reflect.DeepEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}

// Search runs a matcher over every object and returns the matches ordered by
// object path.
func Search(objects ManagedObjects, m Matcher) ([]Match, error) {
	paths := make([]dbus.ObjectPath, 0, len(objects))
	for path := range objects {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	var matches []Match
	for _, path := range paths {
		ok, err := m.Match(path, objects[path])
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, Match{Path: path, Table: objects[path]})
		}
	}
	return matches, nil
}

type allMatcher []Matcher

func (ms allMatcher) Match(path dbus.ObjectPath, table ObjectTable) (bool, error) {
	for _, m := range ms {
		ok, err := m.Match(path, table)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type anyMatcher []Matcher

func (ms anyMatcher) Match(path dbus.ObjectPath, table ObjectTable) (bool, error) {
	for _, m := range ms {
		ok, err := m.Match(path, table)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type notMatcher struct {
	m Matcher
}

func (n notMatcher) Match(path dbus.ObjectPath, table ObjectTable) (bool, error) {
	ok, err := n.m.Match(path, table)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// All matches objects every given matcher selects.
func All(ms ...Matcher) Matcher {
	return allMatcher(ms)
}

// Any matches objects at least one given matcher selects.
func Any(ms ...Matcher) Matcher {
	return anyMatcher(ms)
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return notMatcher{m: m}
}
