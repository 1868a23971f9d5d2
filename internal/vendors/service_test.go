package vendors

import (
	"errors"
	"testing"
)

func TestValidateVendorInput(t *testing.T) {
	tests := []struct {
		name    string
		in      VendorInput
		wantErr bool
	}{
		{name: "valid", in: VendorInput{OrgID: 1, Name: "Acme", ContactEmail: "ops@acme.test"}},
		{name: "email optional", in: VendorInput{OrgID: 1, Name: "Acme"}},
		{name: "missing org", in: VendorInput{Name: "Acme"}, wantErr: true},
		{name: "blank name", in: VendorInput{OrgID: 1, Name: "   "}, wantErr: true},
		{name: "bad email", in: VendorInput{OrgID: 1, Name: "Acme", ContactEmail: "not-an-address"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateVendorInput(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseBoolLoose(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "", want: true},
		{value: "1", want: true},
		{value: "Yes", want: true},
		{value: " ACTIVE ", want: true},
		{value: "0", want: false},
		{value: "no", want: false},
		{value: "inactive", want: false},
		{value: "7", want: true},
		{value: "maybe", want: true},
	}

	for _, tc := range tests {
		if got := parseBoolLoose(tc.value); got != tc.want {
			t.Fatalf("parseBoolLoose(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
