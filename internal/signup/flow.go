// Package signup drives the candidate self-registration flow: contact, OTP
// verification and profile details. Progress is persisted after every step
// the backend accepts so the flow can be resumed by a later invocation.
package signup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
	"github.com/felixgeelhaar/candidash/internal/log"
)

// DefaultResendInterval is how long a candidate waits before another OTP can
// be sent to the same contact.
const DefaultResendInterval = 30 * time.Second

// Profile is the payload of the profile step.
type Profile struct {
	CandidateID int64  `json:"candidateId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Service is the signup backend.
type Service interface {
	SendOTP(ctx context.Context, contact string, method Method) error
	VerifyOTP(ctx context.Context, contact, code string) (candidateID int64, err error)
	SaveProfile(ctx context.Context, p Profile) error
}

// StepObserver is told the outcome of every step. The metrics package
// implements it.
type StepObserver interface {
	RecordSignupStep(step string, success bool)
}

// Option configures a Flow.
type Option func(*Flow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithResendInterval overrides DefaultResendInterval.
func WithResendInterval(d time.Duration) Option {
	return func(f *Flow) { f.resendAfter = d }
}

// WithLogger sets the flow logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l.WithComponent("signup")
		}
	}
}

// WithObserver sets a step observer.
func WithObserver(o StepObserver) Option {
	return func(f *Flow) { f.observer = o }
}

// Flow is the signup state machine.
type Flow struct {
	service     Service
	store       Store
	now         func() time.Time
	resendAfter time.Duration
	logger      *log.Logger
	observer    StepObserver

	mu  sync.Mutex
	reg Registration
}

// NewFlow returns a flow at StepContact. Call Resume to continue a persisted one.
func NewFlow(service Service, store Store, opts ...Option) *Flow {
	f := &Flow{
		service:     service,
		store:       store,
		now:         time.Now,
		resendAfter: DefaultResendInterval,
		logger:      log.Discard(),
		reg:         Registration{Step: StepContact},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resume loads the persisted registration, if any.
func (f *Flow) Resume() (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := f.store.Load()
	switch {
	case errors.Is(err, ErrNoRegistration):
		f.reg = Registration{Step: StepContact}
	case err != nil:
		return f.reg, fmt.Errorf("failed to load signup progress: %w", err)
	default:
		f.reg = *r
	}
	return f.reg, nil
}

// Registration returns the current progress.
func (f *Flow) Registration() Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reg
}

// Step returns the current step.
func (f *Flow) Step() Step {
	return f.Registration().Step
}

// Reset discards all progress.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reg = Registration{Step: StepContact}
	return f.store.Clear()
}

// SendOTP validates contact and asks the backend to send a one-time password.
//
// It is allowed at StepContact and, as a resend, at StepOTPSent. Resending to
// the same contact is refused until the resend interval has passed; a
// different contact starts over.
func (f *Flow) SendOTP(ctx context.Context, contact string, method Method) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reg.Step != StepContact && f.reg.Step != StepOTPSent {
		return cerrors.NewSignupStepError(string(f.reg.Step), string(StepContact))
	}

	normalized, err := NormalizeContact(contact, method)
	if err != nil {
		return err
	}

	now := f.now()
	if f.reg.Step == StepOTPSent && f.reg.RegistrationContact == normalized {
		if wait := f.reg.OTPSentAt.Add(f.resendAfter).Sub(now); wait > 0 {
			return cerrors.New(cerrors.ErrCodeSignupInput,
				fmt.Sprintf("Please wait %ds before requesting another OTP", int(wait.Round(time.Second)/time.Second)))
		}
	}

	if err := f.service.SendOTP(ctx, normalized, method); err != nil {
		f.observe("send_otp", false)
		return backendError("failed to send OTP", err)
	}

	f.reg = Registration{
		Step:                StepOTPSent,
		RegistrationMethod:  method,
		RegistrationContact: normalized,
		OTPSentAt:           now,
	}
	f.observe("send_otp", true)
	f.logger.Info("otp sent", "method", string(method), "contact", MaskContact(normalized, method))
	return f.persist()
}

// VerifyOTP checks code with the backend and records the candidate ID.
func (f *Flow) VerifyOTP(ctx context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reg.Step != StepOTPSent {
		return 0, cerrors.NewSignupStepError(string(f.reg.Step), string(StepOTPSent))
	}
	if err := ValidateOTP(code); err != nil {
		return 0, err
	}

	id, err := f.service.VerifyOTP(ctx, f.reg.RegistrationContact, code)
	if err != nil {
		f.observe("verify_otp", false)
		return 0, backendError("OTP verification failed", err)
	}

	f.reg.CandidateID = id
	f.reg.Step = StepVerified
	f.observe("verify_otp", true)
	f.logger.Info("otp verified", "candidate_id", id)
	return id, f.persist()
}

// SaveProfile sends the candidate's name and date of birth.
func (f *Flow) SaveProfile(ctx context.Context, fullName, dateOfBirth string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reg.Step != StepVerified {
		return cerrors.NewSignupStepError(string(f.reg.Step), string(StepVerified))
	}

	first, last, err := SplitFullName(fullName)
	if err != nil {
		return err
	}
	dob, err := ParseDateOfBirth(dateOfBirth, f.now())
	if err != nil {
		return err
	}

	p := Profile{
		CandidateID: f.reg.CandidateID,
		FirstName:   first,
		LastName:    last,
		DateOfBirth: dob.Format(DateLayout),
	}
	if err := f.service.SaveProfile(ctx, p); err != nil {
		f.observe("profile", false)
		return backendError("failed to save profile details", err)
	}

	f.reg.FirstName = p.FirstName
	f.reg.LastName = p.LastName
	f.reg.DateOfBirth = p.DateOfBirth
	f.reg.Step = StepCompleted
	f.observe("profile", true)
	f.logger.Info("signup completed", "candidate_id", f.reg.CandidateID)
	return f.persist()
}

// persist saves the registration. Must be called with mu held.
func (f *Flow) persist() error {
	f.reg.UpdatedAt = f.now()
	if err := f.store.Save(&f.reg); err != nil {
		f.logger.WithError(err).Warn("failed to persist signup progress")
		return fmt.Errorf("failed to persist signup progress: %w", err)
	}
	return nil
}

func (f *Flow) observe(step string, ok bool) {
	if f.observer != nil {
		f.observer.RecordSignupStep(step, ok)
	}
}

// backendError keeps typed errors intact and wraps everything else.
func backendError(msg string, err error) error {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return err
	}
	return cerrors.Wrap(cerrors.ErrCodeSignupBackend, fmt.Sprintf("%s: %v", msg, err), err)
}
