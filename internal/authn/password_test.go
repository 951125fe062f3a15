package authn

import "testing"

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"meets all classes at minimum length", "Passw0rd!", true},
		{"seven chars fails", "Pas0rd!", false},
		{"missing uppercase", "passw0rd!", false},
		{"missing special", "Passw0rd1", false},
		{"common password", "Password123", false},
		{"repeated run", "Paaaaassw0rd!", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantOK && err != nil {
				t.Fatalf("expected %q to be valid, got error: %v", tc.password, err)
			}
			if !tc.wantOK && err == nil {
				t.Fatalf("expected %q to be invalid", tc.password)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "Passw0rd!") {
		t.Fatal("expected correct password to match")
	}
	if CheckPassword(hash, "wrongpassword") {
		t.Fatal("expected incorrect password not to match")
	}
}
