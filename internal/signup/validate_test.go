package signup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name    string
		contact string
		method  Method
		want    string
		wantErr string
	}{
		{"email", " meera@example.org ", MethodEmail, "meera@example.org", ""},
		{"email without tld", "meera@example", MethodEmail, "", "Please enter a valid email address"},
		{"email with space", "me era@example.org", MethodEmail, "", "Please enter a valid email address"},
		{"phone formatted", "+91 (98) 765-43210", MethodPhone, "", "Please enter a valid 10-digit mobile number"},
		{"phone digits", "98765 43210", MethodPhone, "9876543210", ""},
		{"phone short", "12345", MethodPhone, "", "Please enter a valid 10-digit mobile number"},
		{"empty", "  ", MethodPhone, "", "Please enter your mobile number"},
		{"bad method", "x", Method("fax"), "", "registration method must be email or phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeContact(tt.contact, tt.method)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateOTP(t *testing.T) {
	assert.NoError(t, ValidateOTP("1234"))
	assert.NoError(t, ValidateOTP(" 0000 "))
	assert.Error(t, ValidateOTP(""))
	assert.Error(t, ValidateOTP("123"))
	assert.Error(t, ValidateOTP("12345"))
	assert.Error(t, ValidateOTP("12a4"))
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in, first, last string
		wantErr         bool
	}{
		{"Meera", "Meera", "", false},
		{"  Meera Nair ", "Meera", "Nair", false},
		{"Anil Kumar Rao", "Anil", "Kumar Rao", false},
		{"Al", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		first, last, err := SplitFullName(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestParseDateOfBirth(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	dob, err := ParseDateOfBirth("2004-02-29", now)
	require.NoError(t, err)
	assert.Equal(t, "2004-02-29", dob.Format(DateLayout))

	_, err = ParseDateOfBirth("29/02/2004", now)
	assert.Error(t, err)
	_, err = ParseDateOfBirth("2027-01-01", now)
	assert.Error(t, err)
	_, err = ParseDateOfBirth("", now)
	assert.Error(t, err)
}

func TestMaskContact(t *testing.T) {
	assert.Equal(t, "me***@example.org", MaskContact("meera@example.org", MethodEmail))
	assert.Equal(t, "****3210", MaskContact("9876543210", MethodPhone))
	assert.Equal(t, "ab@x.io", MaskContact("ab@x.io", MethodEmail))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Mobile")
	require.NoError(t, err)
	assert.Equal(t, MethodPhone, m)
	assert.Equal(t, "PHONE", m.ContactType())

	m, err = ParseMethod("email")
	require.NoError(t, err)
	assert.Equal(t, "EMAIL", m.ContactType())

	_, err = ParseMethod("carrier-pigeon")
	assert.Error(t, err)
}
