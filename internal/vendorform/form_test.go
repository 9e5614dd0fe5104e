package vendorform

import "testing"

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name       string
		creds      Credentials
		wantFields []string
	}{
		{
			name:       "valid",
			creds:      Credentials{Phone: "9876543210", Password: "secret1", ConfirmPassword: "secret1"},
			wantFields: nil,
		},
		{
			name:       "phone not starting with 6-9",
			creds:      Credentials{Phone: "1234567890", Password: "secret1", ConfirmPassword: "secret1"},
			wantFields: []string{"phone"},
		},
		{
			name:       "short password",
			creds:      Credentials{Phone: "9876543210", Password: "abc", ConfirmPassword: "abc"},
			wantFields: []string{"password"},
		},
		{
			name:       "mismatched confirmation",
			creds:      Credentials{Phone: "9876543210", Password: "secret1", ConfirmPassword: "secret2"},
			wantFields: []string{"confirmPassword"},
		},
		{
			name:       "all empty",
			creds:      Credentials{},
			wantFields: []string{"phone", "password", "confirmPassword"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCredentials(tt.creds)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("errors = %v, want fields %v", errs, tt.wantFields)
			}
			for _, field := range tt.wantFields {
				if errs[field] == "" {
					t.Fatalf("expected error for field %q, got %v", field, errs)
				}
			}
		})
	}
}

func TestDraftNext_BlocksOnInvalidCredentials(t *testing.T) {
	d := &Draft{Credentials: Credentials{Phone: "1234567890", Password: "secret1", ConfirmPassword: "secret1"}}

	errs := d.Next()
	if len(errs) == 0 {
		t.Fatalf("expected validation errors")
	}
	if d.Stage != 0 {
		t.Fatalf("stage advanced despite validation errors")
	}

	d.Credentials.Phone = "9876543210"
	if errs := d.Next(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if d.Stage != 1 {
		t.Fatalf("stage = %d, want 1", d.Stage)
	}
}

func TestValidateProfile_RequiredFields(t *testing.T) {
	errs := ValidateProfile(Profile{})

	for _, field := range []string{
		"name", "email", "address", "logo",
		"fssaiNumber", "fssaiCertificate",
		"accountHolder", "accountNumber", "ifsc",
		"openingTime", "closingTime", "menu",
	} {
		if errs[field] == "" {
			t.Fatalf("expected error for %q, got %v", field, errs)
		}
	}

	// Пустой GSTIN допустим.
	if errs["gstin"] != "" {
		t.Fatalf("empty GSTIN must be allowed, got %q", errs["gstin"])
	}
}

func TestValidateProfile_OptionalGSTIN(t *testing.T) {
	p := validProfile()
	p.GSTIN = "not-a-gstin"

	errs := ValidateProfile(p)
	if errs["gstin"] == "" {
		t.Fatalf("expected error for malformed GSTIN")
	}

	p.GSTIN = "29ABCCE1234F1Z5"
	if errs := ValidateProfile(p); errs["gstin"] != "" {
		t.Fatalf("valid GSTIN rejected: %q", errs["gstin"])
	}
}

func TestValidateProfile_MenuSections(t *testing.T) {
	p := validProfile()
	p.Sections = []MenuSection{{MealType: "Lunch"}}

	errs := ValidateProfile(p)
	if errs["menu[0].menuType"] == "" {
		t.Fatalf("expected menu type error, got %v", errs)
	}
	if errs["menu[0].items"] == "" {
		t.Fatalf("expected menu items error, got %v", errs)
	}
}
