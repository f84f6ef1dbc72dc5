package signature

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sig     string
		want    []string
		wantErr error
	}{
		{
			name: "Empty",
			sig:  "",
			want: []string{},
		},
		{
			name: "SingleBasic",
			sig:  "s",
			want: []string{"s"},
		},
		{
			name: "AllBasicCodes",
			sig:  "ybnqiuxtdhsog",
			want: []string{"y", "b", "n", "q", "i", "u", "x", "t", "d", "h", "s", "o", "g"},
		},
		{
			name: "Variant",
			sig:  "v",
			want: []string{"v"},
		},
		{
			name: "Array",
			sig:  "as",
			want: []string{"as"},
		},
		{
			name: "NestedArray",
			sig:  "aai",
			want: []string{"aai"},
		},
		{
			name: "Dict",
			sig:  "a{sv}",
			want: []string{"a{sv}"},
		},
		{
			name: "DictOfArrays",
			sig:  "a{sa{ov}}",
			want: []string{"a{sa{ov}}"},
		},
		{
			name: "Struct",
			sig:  "(iis)",
			want: []string{"(iis)"},
		},
		{
			name: "NestedStruct",
			sig:  "(i(ss)ab)",
			want: []string{"(i(ss)ab)"},
		},
		{
			name: "Sequence",
			sig:  "sa{sv}(ii)u",
			want: []string{"s", "a{sv}", "(ii)", "u"},
		},
		{
			name:    "UnknownCode",
			sig:     "z",
			wantErr: ErrUnknownCode,
		},
		{
			name:    "StrayCloseParen",
			sig:     ")",
			wantErr: ErrUnknownCode,
		},
		{
			name:    "BareArray",
			sig:     "a",
			wantErr: ErrIncomplete,
		},
		{
			name:    "UnterminatedStruct",
			sig:     "(ii",
			wantErr: ErrIncomplete,
		},
		{
			name:    "EmptyStruct",
			sig:     "()",
			wantErr: ErrEmptyStruct,
		},
		{
			name:    "UnterminatedDict",
			sig:     "a{sv",
			wantErr: ErrIncomplete,
		},
		{
			name:    "DictWithThreeTypes",
			sig:     "a{svv}",
			wantErr: ErrIncomplete,
		},
		{
			name:    "NonBasicDictKey",
			sig:     "a{vs}",
			wantErr: ErrBadDictKey,
		},
		{
			name:    "ArrayDictKey",
			sig:     "a{ass}",
			wantErr: ErrBadDictKey,
		},
		{
			name:    "TooLong",
			sig:     strings.Repeat("i", 256),
			wantErr: ErrTooLong,
		},
		{
			name:    "ArrayDepthExceeded",
			sig:     strings.Repeat("a", 33) + "i",
			wantErr: ErrDepthExceeded,
		},
		{
			name: "ArrayDepthAtLimit",
			sig:  strings.Repeat("a", 32) + "i",
			want: []string{strings.Repeat("a", 32) + "i"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tc.sig)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d types, got %d (%v)", len(tc.want), len(got), got)
			}
			for i, typ := range got {
				if typ.String() != tc.want[i] {
					t.Fatalf("type %d: expected %q, got %q", i, tc.want[i], typ.String())
				}
			}
		})
	}
}

func TestParseSingle(t *testing.T) {
	t.Parallel()

	typ, err := ParseSingle("a{sv}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !typ.IsDict() {
		t.Fatalf("expected dict type, got %q", typ.String())
	}

	if _, err := ParseSingle("ss"); !errors.Is(err, ErrNotSingle) {
		t.Fatalf("expected ErrNotSingle, got %v", err)
	}
	if _, err := ParseSingle(""); !errors.Is(err, ErrNotSingle) {
		t.Fatalf("expected ErrNotSingle for empty signature, got %v", err)
	}
}

func TestGoType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sig  string
		want string
	}{
		{"y", "byte"},
		{"b", "bool"},
		{"n", "int16"},
		{"q", "uint16"},
		{"i", "int32"},
		{"u", "uint32"},
		{"x", "int64"},
		{"t", "uint64"},
		{"d", "float64"},
		{"h", "dbus.UnixFD"},
		{"s", "string"},
		{"o", "dbus.ObjectPath"},
		{"g", "dbus.Signature"},
		{"v", "dbus.Variant"},
		{"as", "[]string"},
		{"aay", "[][]byte"},
		{"a{sv}", "map[string]dbus.Variant"},
		{"a{oa{sv}}", "map[dbus.ObjectPath]map[string]dbus.Variant"},
		{"(ii)", "[]interface{}"},
		{"a(ss)", "[][]interface{}"},
	}

	for _, tc := range tests {
		t.Run(tc.sig, func(t *testing.T) {
			t.Parallel()

			typ, err := ParseSingle(tc.sig)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typ.GoType(); got != tc.want {
				t.Fatalf("expected Go type %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTypeInspection(t *testing.T) {
	t.Parallel()

	typ, err := ParseSingle("a{s(ii)}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, value, ok := typ.KeyValue()
	if !ok {
		t.Fatalf("expected dict")
	}
	if key.Code() != 's' || !key.IsBasic() {
		t.Fatalf("unexpected key type %q", key.String())
	}
	if value.Code() != '(' || !value.IsContainer() {
		t.Fatalf("unexpected value type %q", value.String())
	}
	if fields := value.Fields(); len(fields) != 2 {
		t.Fatalf("expected 2 struct fields, got %d", len(fields))
	}

	arr, err := ParseSingle("ax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elem, ok := arr.Elem()
	if !ok || elem.Code() != 'x' {
		t.Fatalf("unexpected array element: %v %v", elem, ok)
	}
	if _, _, ok := arr.KeyValue(); ok {
		t.Fatalf("plain array must not report dict parts")
	}
	if _, ok := typ.Elem(); ok {
		t.Fatalf("dict must not report a plain element")
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !Valid("a{sv}") {
		t.Fatalf("expected a{sv} to be valid")
	}
	if Valid("a{") {
		t.Fatalf("expected a{ to be invalid")
	}
}
