package services

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@example.com", "first.last+tag@sub.example.ci"}
	invalid := []string{"", "plain", "a@", "@example.com", "a@localhost", "Ama <a@example.com>", "a b@example.com"}

	for _, email := range valid {
		if err := validateEmail(email); err != nil {
			t.Errorf("%q should be valid: %v", email, err)
		}
	}
	for _, email := range invalid {
		if err := validateEmail(email); err == nil {
			t.Errorf("%q should be invalid", email)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	if err := validatePhone("+22507000001"); err != nil {
		t.Fatalf("valid phone rejected: %v", err)
	}
	for _, phone := range []string{"22507000001", "+225070000011", "+2250700000", "+22507 00001", ""} {
		if err := validatePhone(phone); err == nil {
			t.Errorf("%q should be invalid", phone)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"TestPass", true},
		{"éééééééé", true},
		{"Short1", false},
		{"ééééééé", false},
		{string(make([]byte, 72)), true},
		{string(make([]byte, 73)), false},
	}
	for _, tc := range tests {
		if err := validatePassword(tc.password); (err == nil) != tc.ok {
			t.Errorf("%q (%d bytes): unexpected result %v", tc.password, len(tc.password), err)
		}
	}
}
