package geoip

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewResolverDisabledWithoutPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("NewResolver(\"\") = %v, %v", r, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil resolver: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestCountryCodeWithoutDatabase(t *testing.T) {
	var r *Resolver
	cases := []struct {
		ip      string
		want    string
		wantErr error
	}{
		{ip: "10.1.2.3"},
		{ip: "127.0.0.1"},
		{ip: "::1"},
		{ip: "::ffff:192.168.1.9"},
		{ip: "fe80::1"},
		{ip: "203.0.113.7", wantErr: ErrUnavailable},
	}
	for _, tc := range cases {
		got, err := r.CountryCode(tc.ip)
		if !errors.Is(err, tc.wantErr) || got != tc.want {
			t.Fatalf("CountryCode(%q) = %q, %v", tc.ip, got, err)
		}
	}
	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatal("expected error for invalid ip")
	}
}
