package signup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/candidash/internal/fsutil"
)

// Method is how the candidate registers.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
)

// ParseMethod accepts email, phone and mobile, case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return MethodEmail, nil
	case "phone", "mobile":
		return MethodPhone, nil
	default:
		return "", fmt.Errorf("unknown registration method %q (expected email or phone)", s)
	}
}

func (m Method) String() string {
	if m == MethodPhone {
		return "mobile number"
	}
	return string(m)
}

// ContactType is the backend's name for the method.
func (m Method) ContactType() string {
	return strings.ToUpper(string(m))
}

// Step is the position of a registration in the signup flow.
type Step string

const (
	StepContact   Step = "contact"
	StepOTPSent   Step = "otp_sent"
	StepVerified  Step = "verified"
	StepCompleted Step = "completed"
)

// Registration is the persisted progress of a candidate signup.
type Registration struct {
	Step                Step      `json:"step"`
	CandidateID         int64     `json:"candidateId,omitempty"`
	RegistrationMethod  Method    `json:"registrationMethod,omitempty"`
	RegistrationContact string    `json:"registrationContact,omitempty"`
	FirstName           string    `json:"firstName,omitempty"`
	LastName            string    `json:"lastName,omitempty"`
	DateOfBirth         string    `json:"dateOfBirth,omitempty"`
	OTPSentAt           time.Time `json:"otpSentAt,omitzero"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (r *Registration) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ErrNoRegistration is returned by Store.Load when nothing is persisted.
var ErrNoRegistration = errors.New("no signup in progress")

// Store persists a registration between CLI invocations.
type Store interface {
	Load() (*Registration, error)
	Save(r *Registration) error
	Clear() error
}

// DefaultFileName is the registration file name under the candidash directory.
const DefaultFileName = "signup.json"

// FileStore keeps the registration in a checksummed JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns ~/.candidash/signup.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".candidash", DefaultFileName), nil
}

// Path returns the file location.
func (f *FileStore) Path() string { return f.path }

// Load reads the registration. A missing or corrupt file reads as
// ErrNoRegistration; a corrupt file is removed.
func (f *FileStore) Load() (*Registration, error) {
	var r Registration
	err := fsutil.ReadRecord(f.path, &r)
	switch {
	case errors.Is(err, fsutil.ErrNotExist):
		return nil, ErrNoRegistration
	case errors.Is(err, fsutil.ErrChecksum):
		_ = fsutil.RemoveRecord(f.path)
		return nil, ErrNoRegistration
	case err != nil:
		return nil, err
	}
	if r.Step == "" {
		r.Step = StepContact
	}
	return &r, nil
}

// Save writes the registration atomically.
func (f *FileStore) Save(r *Registration) error {
	return fsutil.WriteRecord(f.path, r, 0o600)
}

// Clear removes the registration file.
func (f *FileStore) Clear() error {
	return fsutil.RemoveRecord(f.path)
}
