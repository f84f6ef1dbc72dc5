package signature

import "errors"

var (
	// ErrTooLong is returned when a signature exceeds the 255 byte limit.
	ErrTooLong = errors.New("signature exceeds 255 bytes")
	// ErrUnknownCode is returned when a signature contains an unknown type code.
	ErrUnknownCode = errors.New("unknown type code")
	// ErrIncomplete is returned when a signature ends inside a container type.
	ErrIncomplete = errors.New("incomplete container type")
	// ErrDepthExceeded is returned when array or struct nesting exceeds the D-Bus limit of 32.
	ErrDepthExceeded = errors.New("container nesting exceeds depth limit")
	// ErrBadDictKey is returned when a dict entry key is not a basic type.
	ErrBadDictKey = errors.New("dict entry key must be a basic type")
	// ErrEmptyStruct is returned for a struct with no member types.
	ErrEmptyStruct = errors.New("struct must contain at least one complete type")
	// ErrNotSingle is returned by ParseSingle when the signature does not hold exactly one complete type.
	ErrNotSingle = errors.New("signature must contain exactly one complete type")
)
