package permission

import (
	"errors"
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" Seller", "buyer", "", "SELLER", "admin "})
	want := []string{"admin", "buyer", "seller"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if Normalize(nil) == nil {
		t.Fatal("Normalize must not return nil")
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name     string
		have     []string
		required []string
		want     bool
	}{
		{name: "intersection", have: []string{"seller"}, required: []string{"seller", "admin"}, want: true},
		{name: "no intersection", have: []string{"buyer"}, required: []string{"seller"}, want: false},
		{name: "admin superset", have: []string{"admin"}, required: []string{"moderator"}, want: true},
		{name: "case insensitive", have: []string{"Moderator"}, required: []string{"moderator"}, want: true},
		{name: "no roles", have: nil, required: []string{"buyer"}, want: false},
		{name: "empty requirement", have: []string{"admin"}, required: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Satisfies(tt.have, tt.required); got != tt.want {
				t.Fatalf("Satisfies(%v, %v) = %v, want %v", tt.have, tt.required, got, tt.want)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, role := range []string{RoleBuyer, RoleSeller, RoleModerator, RoleAdmin} {
		if !r.Known(role) {
			t.Fatalf("expected %s to be registered", role)
		}
	}
	if r.Superset() != RoleAdmin {
		t.Fatalf("expected admin superset, got %q", r.Superset())
	}
	if err := r.Register("auditor"); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestRegistryRequirement(t *testing.T) {
	r := DefaultRegistry()

	roles, err := r.Requirement("Seller", "seller", "admin")
	if err != nil {
		t.Fatalf("requirement: %v", err)
	}
	if !slices.Equal(roles, []string{"admin", "seller"}) {
		t.Fatalf("unexpected normalized requirement %v", roles)
	}
	if _, err := r.Requirement(); !errors.Is(err, ErrEmptyRequirement) {
		t.Fatalf("expected ErrEmptyRequirement, got %v", err)
	}
	if _, err := r.Requirement("superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRegistryWithoutSuperset(t *testing.T) {
	r, err := NewRegistry("", "reader", "writer")
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if r.Satisfies([]string{"admin"}, []string{"reader"}) {
		t.Fatal("admin must carry no implicit grant without a superset")
	}
	if !r.Satisfies([]string{"writer"}, []string{"reader", "writer"}) {
		t.Fatal("expected intersection to satisfy")
	}
	if !slices.Equal(r.Roles(), []string{"reader", "writer"}) {
		t.Fatalf("unexpected roles %v", r.Roles())
	}
}
