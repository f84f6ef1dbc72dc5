package managed

import "errors"

var (
	// ErrMissingInterface is returned when an object table does not contain
	// the interface an accessor or query was built for.
	ErrMissingInterface = errors.New("object does not implement interface")
	// ErrMissingProperty is returned when an object's slice of the table
	// lacks a property its interface declares.
	ErrMissingProperty = errors.New("no entry found for property")
	// ErrUnknownProperty is returned when a property name is not declared by
	// the interface specification at all.
	ErrUnknownProperty = errors.New("property not declared by interface")
)
