package codegen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
)

func specs() []introspect.Interface {
	return []introspect.Interface{
		{
			Name: "org.storage.examples.Pool",
			Properties: []introspect.Property{
				{Name: "Uuid", Type: "s", Access: "read"},
				{Name: "Name", Type: "s", Access: "readwrite"},
				{Name: "TotalPhysicalSize", Type: "t", Access: "read"},
				{Name: "Devices", Type: "ao", Access: "read"},
				{Name: "Metadata", Type: "a{sv}", Access: "read"},
			},
		},
		{
			Name: "org.storage.examples.Filesystem",
			Properties: []introspect.Property{
				{Name: "Pool", Type: "o", Access: "read"},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Generate(&buf, Options{PackageName: "examplefs", Interfaces: specs()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"package examplefs",
		`const FilesystemInterface = "org.storage.examples.Filesystem"`,
		`const PoolInterface = "org.storage.examples.Pool"`,
		"func NewPoolProperties(table map[string]map[string]dbus.Variant) (*PoolProperties, error)",
		"func (p *PoolProperties) Uuid() (string, error)",
		"func (p *PoolProperties) TotalPhysicalSize() (uint64, error)",
		"func (p *PoolProperties) Devices() ([]dbus.ObjectPath, error)",
		"func (p *PoolProperties) Metadata() (map[string]dbus.Variant, error)",
		"func (p *FilesystemProperties) Pool() (dbus.ObjectPath, error)",
		"// Code generated by dbusgen. DO NOT EDIT.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("generated output missing %q:\n%s", want, out)
		}
	}

	// Interfaces are sorted by D-Bus name, Filesystem before Pool.
	if strings.Index(out, "FilesystemInterface") > strings.Index(out, "PoolInterface") {
		t.Fatalf("interfaces not emitted in sorted order")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer
	opts := Options{PackageName: "examplefs", Interfaces: specs()}
	if err := Generate(&first, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Generate(&second, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("two runs produced different output")
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{
			name:    "NoPackage",
			opts:    Options{Interfaces: specs()},
			wantErr: ErrNoPackage,
		},
		{
			name:    "NoInterfaces",
			opts:    Options{PackageName: "examplefs"},
			wantErr: ErrNoInterfaces,
		},
		{
			name: "InvalidSpec",
			opts: Options{
				PackageName: "examplefs",
				Interfaces: []introspect.Interface{
					{Properties: []introspect.Property{{Name: "A", Type: "s", Access: "read"}}},
				},
			},
			wantErr: introspect.ErrNoInterfaceName,
		},
		{
			name: "UnusableIdentifier",
			opts: Options{
				PackageName: "examplefs",
				Interfaces: []introspect.Interface{
					{
						Name:       "org.storage.examples.Pool",
						Properties: []introspect.Property{{Name: "1234", Type: "s", Access: "read"}},
					},
				},
			},
			wantErr: ErrBadIdentifier,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Generate(&buf, tc.opts); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestGoIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "name", want: "Name"},
		{in: "TotalPhysicalSize", want: "TotalPhysicalSize"},
		{in: "key-word", want: "Keyword"},
		{in: "1234", wantErr: true},
		{in: "---", wantErr: true},
	}

	for _, tc := range tests {
		got, err := goIdentifier(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrBadIdentifier) {
				t.Fatalf("%q: expected ErrBadIdentifier, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
