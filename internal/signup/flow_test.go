package signup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
)

type fakeService struct {
	sent     []string
	verified []string
	profiles []Profile

	sendErr    error
	verifyErr  error
	profileErr error
	candidate  int64
}

func (f *fakeService) SendOTP(_ context.Context, contact string, method Method) error {
	f.sent = append(f.sent, contact)
	return f.sendErr
}

func (f *fakeService) VerifyOTP(_ context.Context, contact, code string) (int64, error) {
	f.verified = append(f.verified, contact+":"+code)
	if f.verifyErr != nil {
		return 0, f.verifyErr
	}
	return f.candidate, nil
}

func (f *fakeService) SaveProfile(_ context.Context, p Profile) error {
	f.profiles = append(f.profiles, p)
	return f.profileErr
}

type stepRecorder struct{ steps []string }

func (r *stepRecorder) RecordSignupStep(step string, ok bool) {
	if ok {
		r.steps = append(r.steps, step)
	} else {
		r.steps = append(r.steps, step+"!")
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newFlow(t *testing.T, svc Service) (*Flow, *FileStore, *clock) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	c := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	return NewFlow(svc, store, WithClock(c.now)), store, c
}

func signupCode(err error) cerrors.ErrorCode {
	var ce *cerrors.CandidashError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func TestFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{candidate: 501}
	rec := &stepRecorder{}
	store := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	f := NewFlow(svc, store, WithObserver(rec))

	require.NoError(t, f.SendOTP(ctx, "98765 43210", MethodPhone))
	assert.Equal(t, StepOTPSent, f.Step())
	assert.Equal(t, []string{"9876543210"}, svc.sent)

	id, err := f.VerifyOTP(ctx, "4321")
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)
	assert.Equal(t, []string{"9876543210:4321"}, svc.verified)

	require.NoError(t, f.SaveProfile(ctx, "Meera Nair", "2001-05-14"))
	assert.Equal(t, StepCompleted, f.Step())
	require.Len(t, svc.profiles, 1)
	assert.Equal(t, Profile{CandidateID: 501, FirstName: "Meera", LastName: "Nair", DateOfBirth: "2001-05-14"}, svc.profiles[0])

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, persisted.Step)
	assert.Equal(t, int64(501), persisted.CandidateID)
	assert.Equal(t, MethodPhone, persisted.RegistrationMethod)
	assert.Equal(t, "9876543210", persisted.RegistrationContact)
	assert.Equal(t, "Meera Nair", persisted.FullName())

	assert.Equal(t, []string{"send_otp", "verify_otp", "profile"}, rec.steps)
}

func TestFlow_ResumeAcrossInstances(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{candidate: 9}
	f, store, _ := newFlow(t, svc)

	require.NoError(t, f.SendOTP(ctx, "meera@example.org", MethodEmail))

	resumed := NewFlow(svc, store)
	reg, err := resumed.Resume()
	require.NoError(t, err)
	assert.Equal(t, StepOTPSent, reg.Step)
	assert.Equal(t, "meera@example.org", reg.RegistrationContact)

	_, err = resumed.VerifyOTP(ctx, "1111")
	require.NoError(t, err)
	assert.Equal(t, StepVerified, resumed.Step())
}

func TestFlow_StepsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFlow(t, &fakeService{candidate: 1})

	_, err := f.VerifyOTP(ctx, "1234")
	assert.Equal(t, cerrors.ErrCodeSignupStep, signupCode(err))

	err = f.SaveProfile(ctx, "Meera Nair", "2001-05-14")
	assert.Equal(t, cerrors.ErrCodeSignupStep, signupCode(err))

	require.NoError(t, f.SendOTP(ctx, "meera@example.org", MethodEmail))
	_, err = f.VerifyOTP(ctx, "1234")
	require.NoError(t, err)

	err = f.SendOTP(ctx, "meera@example.org", MethodEmail)
	assert.Equal(t, cerrors.ErrCodeSignupStep, signupCode(err))
}

func TestFlow_InvalidInputDoesNotCallBackend(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	f, _, _ := newFlow(t, svc)

	err := f.SendOTP(ctx, "not-an-email", MethodEmail)
	assert.Equal(t, cerrors.ErrCodeSignupInput, signupCode(err))
	assert.Empty(t, svc.sent)
	assert.Equal(t, StepContact, f.Step())
}

func TestFlow_ResendCooldown(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	f, _, c := newFlow(t, svc)

	require.NoError(t, f.SendOTP(ctx, "meera@example.org", MethodEmail))

	c.t = c.t.Add(10 * time.Second)
	err := f.SendOTP(ctx, "meera@example.org", MethodEmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait 20s")

	// A different contact is a fresh start.
	require.NoError(t, f.SendOTP(ctx, "other@example.org", MethodEmail))

	c.t = c.t.Add(DefaultResendInterval)
	require.NoError(t, f.SendOTP(ctx, "other@example.org", MethodEmail))
	assert.Len(t, svc.sent, 3)
}

func TestFlow_BackendFailureKeepsStep(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	f, store, _ := newFlow(t, svc)
	require.NoError(t, f.SendOTP(ctx, "9876543210", MethodPhone))

	svc.verifyErr = errors.New("invalid OTP")
	_, err := f.VerifyOTP(ctx, "0000")
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeSignupBackend, signupCode(err))
	assert.Contains(t, err.Error(), "invalid OTP")
	assert.Equal(t, StepOTPSent, f.Step())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StepOTPSent, persisted.Step)
}

func TestFlow_Reset(t *testing.T) {
	ctx := context.Background()
	f, store, _ := newFlow(t, &fakeService{})
	require.NoError(t, f.SendOTP(ctx, "9876543210", MethodPhone))

	require.NoError(t, f.Reset())
	assert.Equal(t, StepContact, f.Step())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoRegistration)

	require.NoError(t, f.Reset(), "reset is idempotent")
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrNoRegistration)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
