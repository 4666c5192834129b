package spec

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/varnalabs/apitestgen/internal/model"
)

func TestResolveType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ, format string
		want        model.ScalarType
	}{
		{"string", "", model.TypeString},
		{"string", "date-time", model.TypeString},
		{"string", "uuid", model.TypeString},
		{"integer", "", model.TypeInteger},
		{"integer", "int32", model.TypeInteger},
		{"integer", "int64", model.TypeLong},
		{"number", "float", model.TypeFloat},
		{"number", "double", model.TypeDouble},
		{"number", "", model.TypeDouble},
		{"boolean", "", model.TypeBoolean},
		{"array", "", model.TypeList},
		{"object", "", model.TypeObject},
		{"", "", model.TypeObject},
		{"file", "binary", model.TypeObject},
	}
	for _, tt := range tests {
		if got := ResolveType(tt.typ, tt.format); got != tt.want {
			t.Errorf("ResolveType(%q, %q) = %q, want %q", tt.typ, tt.format, got, tt.want)
		}
	}
}

func TestSynthesizeOperationID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		method model.Method
		path   string
		want   string
	}{
		{model.GET, "/orders/{id}", "get_orders_id"},
		{model.GET, "/", "get_root"},
		{model.GET, "", "get_root"},
		{model.DELETE, "/user-profiles/{profile-id}/avatar", "delete_user_profiles_profile_id_avatar"},
		{model.POST, "/users", "post_users"},
	}
	for _, tt := range tests {
		if got := SynthesizeOperationID(tt.method, tt.path); got != tt.want {
			t.Errorf("SynthesizeOperationID(%s, %q) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestOrderIndex(t *testing.T) {
	t.Parallel()
	doc, err := decodeDocument([]byte(`
root:
  "a/b": 1
  z: 2
  m:
    - k2: x
      k1: y
  alias: &anchor
    q: 1
    p: 2
  again: *anchor
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tests := []struct {
		ptr  string
		keys []string
		want []string
	}{
		{"/root", []string{"z", "a/b", "m", "extra"}, []string{"a/b", "z", "m", "extra"}},
		{"/root/m/0", []string{"k1", "k2"}, []string{"k2", "k1"}},
		{"/root/again", []string{"p", "q"}, []string{"q", "p"}},
		{"/unknown", []string{"b", "a"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, doc.order.ordered(tt.ptr, tt.keys)); diff != "" {
			t.Errorf("ordered(%s) (-want +got):\n%s", tt.ptr, diff)
		}
	}
	if escapePointer("a/b~c") != "a~1b~0c" {
		t.Fatalf("escapePointer")
	}
	if refName("#/components/schemas/a~1b") != "a/b" {
		t.Fatalf("refName")
	}
}
