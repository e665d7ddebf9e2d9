package signup

import (
	"regexp"
	"strings"
	"time"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
)

// DateLayout is the wire format of a date of birth.
const DateLayout = "2006-01-02"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigit     = regexp.MustCompile(`\D`)
	otpPattern   = regexp.MustCompile(`^\d{4}$`)
)

func inputError(msg string) error {
	return cerrors.New(cerrors.ErrCodeSignupInput, msg)
}

// NormalizeContact validates contact for method and returns the form sent to
// the backend: the trimmed address for email, the 10 digits for phone.
func NormalizeContact(contact string, method Method) (string, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return "", inputError("Please enter your " + method.String())
	}

	switch method {
	case MethodEmail:
		if !emailPattern.MatchString(contact) {
			return "", inputError("Please enter a valid email address")
		}
		return contact, nil
	case MethodPhone:
		digits := nonDigit.ReplaceAllString(contact, "")
		if len(digits) != 10 {
			return "", inputError("Please enter a valid 10-digit mobile number")
		}
		return digits, nil
	default:
		return "", inputError("registration method must be email or phone")
	}
}

// ValidateOTP checks that code is a 4-digit one-time password.
func ValidateOTP(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return inputError("Please enter the OTP")
	}
	if !otpPattern.MatchString(code) {
		return inputError("OTP must be 4 digits")
	}
	return nil
}

// SplitFullName splits a full name into first and last name at the first
// space. The trimmed name must have at least 3 characters.
func SplitFullName(fullName string) (first, last string, err error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return "", "", inputError("Please enter your full name")
	}
	if len([]rune(fullName)) < 3 {
		return "", "", inputError("Full name must be at least 3 characters")
	}
	first, last, _ = strings.Cut(fullName, " ")
	return first, strings.TrimSpace(last), nil
}

// ParseDateOfBirth parses a YYYY-MM-DD date that is not in the future.
func ParseDateOfBirth(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, inputError("Please select your date of birth")
	}
	dob, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, inputError("date of birth must be in YYYY-MM-DD format")
	}
	if dob.After(now) {
		return time.Time{}, inputError("date of birth cannot be in the future")
	}
	return dob, nil
}

// MaskContact hides most of a contact for display.
func MaskContact(contact string, method Method) string {
	if method == MethodEmail {
		local, domain, ok := strings.Cut(contact, "@")
		if !ok || len(local) <= 2 {
			return contact
		}
		return local[:2] + "***@" + domain
	}
	if len(contact) <= 4 {
		return contact
	}
	return "****" + contact[len(contact)-4:]
}
