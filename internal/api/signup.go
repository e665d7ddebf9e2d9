package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/felixgeelhaar/candidash/internal/signup"
	"github.com/felixgeelhaar/candidash/internal/telemetry"
	"github.com/felixgeelhaar/candidash/internal/transport"
)

// Signup endpoints.
const (
	PathSendOTP        = "/api/signup/send-otp"
	PathVerifyOTP      = "/api/signup/verify-otp"
	PathProfileDetails = "/api/signup/profile-details"
)

type sendOTPRequest struct {
	Contact     string `json:"contact"`
	ContactType string `json:"contactType"`
}

type verifyOTPRequest struct {
	Contact string `json:"contact"`
	OTPCode string `json:"otpCode"`
}

type signupResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CandidateID int64  `json:"candidateId"`
}

// SignupService implements signup.Service over the backend's signup
// endpoints. Signup is anonymous, so the calls never raise the
// session-expiry signal.
type SignupService struct {
	client *Client
}

var _ signup.Service = (*SignupService)(nil)

// NewSignupService wraps c.
func NewSignupService(c *Client) *SignupService {
	return &SignupService{client: c}
}

// SendOTP requests a one-time password for contact.
func (s *SignupService) SendOTP(ctx context.Context, contact string, method signup.Method) error {
	_, err := s.post(ctx, PathSendOTP, SchemaSignupResponse, sendOTPRequest{
		Contact:     contact,
		ContactType: method.ContactType(),
	})
	return err
}

// VerifyOTP checks code and returns the candidate ID the backend assigned.
func (s *SignupService) VerifyOTP(ctx context.Context, contact, code string) (int64, error) {
	resp, err := s.post(ctx, PathVerifyOTP, SchemaVerifyOTPResponse, verifyOTPRequest{
		Contact: contact,
		OTPCode: code,
	})
	if err != nil {
		return 0, err
	}
	return resp.CandidateID, nil
}

// SaveProfile sends the candidate's name and date of birth.
func (s *SignupService) SaveProfile(ctx context.Context, p signup.Profile) error {
	_, err := s.post(ctx, PathProfileDetails, SchemaSignupResponse, p)
	return err
}

// post sends body to path. Any non-2xx reply, and a 2xx reply with
// success=false, is returned as a *StatusError carrying the backend message.
func (s *SignupService) post(ctx context.Context, path, schema string, body any) (out *signupResponse, err error) {
	ctx, span := telemetry.StartAPISpan(ctx, http.MethodPost, path)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	ctx = transport.WithoutAuthCheck(ctx)
	resp, err := s.client.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	// Reject a reply that says it failed before checking the success schema.
	var envelope signupResponse
	if json.Unmarshal(raw, &envelope) == nil && !envelope.Success && envelope.Message != "" {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	var sr signupResponse
	if err := s.client.decode(schema, raw, &sr); err != nil {
		return nil, err
	}
	if !sr.Success {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: sr.Message}
	}
	return &sr, nil
}
