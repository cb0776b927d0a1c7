package engine

import (
	"testing"

	"github.com/tetratelabs/wazero/api"
)

func TestParseContracts(t *testing.T) {
	got, err := parseContracts(contractWIT)
	if err != nil {
		t.Fatalf("parseContracts: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{RoleAllocate, "(i32) -> (i32)"},
		{RoleFree, "(i32) -> ()"},
		{RoleCompute, "(i32, i32) -> ()"},
	}
	for _, tt := range tests {
		sig, ok := got[tt.name]
		if !ok {
			t.Errorf("%s: missing", tt.name)
			continue
		}
		if sig.String() != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, sig, tt.want)
		}
	}
}

func TestParseContracts_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"string param", "f: func(s: string);"},
		{"list result", "f: func() -> list<u8>;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseContracts(tt.text); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCoreType(t *testing.T) {
	tests := []struct {
		wit  string
		want api.ValueType
	}{
		{"u32", api.ValueTypeI32},
		{"s8", api.ValueTypeI32},
		{"bool", api.ValueTypeI32},
		{"u64", api.ValueTypeI64},
		{"f32", api.ValueTypeF32},
		{"f64", api.ValueTypeF64},
	}
	for _, tt := range tests {
		got, err := coreType(tt.wit)
		if err != nil {
			t.Errorf("%s: %v", tt.wit, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %s, want %s", tt.wit, api.ValueTypeName(got), api.ValueTypeName(tt.want))
		}
	}
}

func TestParseViews(t *testing.T) {
	tests := []struct {
		names   []string
		want    Views
		wantErr bool
	}{
		{nil, ViewAll, false},
		{[]string{"all"}, ViewAll, false},
		{[]string{"bulk"}, ViewBulk, false},
		{[]string{" Signed ", "buffer"}, ViewSigned | ViewBuffer, false},
		{[]string{"mapped"}, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseViews(tt.names)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseViews(%v) err = %v", tt.names, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseViews(%v) = %s, want %s", tt.names, got, tt.want)
		}
	}

	if s := (ViewBulk | ViewBuffer).String(); s != "bulk|buffer" {
		t.Errorf("String = %q", s)
	}
	if s := Views(0).String(); s != "none" {
		t.Errorf("String = %q", s)
	}
}
