package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/signup"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

func newSignupCommand() *cobra.Command {
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Register as a candidate",
		Long: `Register as a candidate with a one-time password.

The steps run in order and progress is saved after each one, so an
interrupted signup resumes where it stopped:

  1. send-otp   send a code to your email address or phone number
  2. verify     confirm the 4-digit code
  3. profile    add your full name and date of birth

Examples:
  candidash signup send-otp 9876543210 --method phone
  candidash signup verify 4821
  candidash signup profile --name "Asha Rao" --dob 2002-07-19
  candidash signup status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	signupCmd.AddCommand(
		newSignupSendOTPCommand(),
		newSignupVerifyCommand(),
		newSignupProfileCommand(),
		newSignupStatusCommand(),
		newSignupResetCommand(),
	)
	return signupCmd
}

// registrationView is the printable form of signup progress. The contact is
// masked.
type registrationView struct {
	Step        signup.Step   `json:"step" yaml:"step"`
	Method      signup.Method `json:"method,omitempty" yaml:"method,omitempty"`
	Contact     string        `json:"contact,omitempty" yaml:"contact,omitempty"`
	CandidateID int64         `json:"candidateId,omitempty" yaml:"candidate_id,omitempty"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	DateOfBirth string        `json:"dateOfBirth,omitempty" yaml:"date_of_birth,omitempty"`
	Next        string        `json:"next,omitempty" yaml:"next,omitempty"`
}

func newRegistrationView(r signup.Registration) registrationView {
	v := registrationView{
		Step:        r.Step,
		Method:      r.RegistrationMethod,
		CandidateID: r.CandidateID,
		Name:        r.FullName(),
		DateOfBirth: r.DateOfBirth,
	}
	if r.RegistrationContact != "" {
		v.Contact = signup.MaskContact(r.RegistrationContact, r.RegistrationMethod)
	}
	switch r.Step {
	case signup.StepContact:
		v.Next = "candidash signup send-otp <contact>"
	case signup.StepOTPSent:
		v.Next = "candidash signup verify <code>"
	case signup.StepVerified:
		v.Next = "candidash signup profile --name <full name> --dob YYYY-MM-DD"
	}
	return v
}

func (v registrationView) render(w io.Writer, s ux.Styles) error {
	fmt.Fprintln(w, s.Field("step", string(v.Step)))
	if v.Contact != "" {
		fmt.Fprintln(w, s.Field("contact", fmt.Sprintf("%s (%s)", v.Contact, v.Method)))
	}
	if v.CandidateID != 0 {
		fmt.Fprintln(w, s.Field("candidate", fmt.Sprintf("%d", v.CandidateID)))
	}
	if v.Name != "" {
		fmt.Fprintln(w, s.Field("name", v.Name))
	}
	if v.DateOfBirth != "" {
		fmt.Fprintln(w, s.Field("born", v.DateOfBirth))
	}
	if v.Next != "" {
		fmt.Fprintln(w, s.Field("next", s.Muted.Render(v.Next)))
	}
	return nil
}

func newSignupSendOTPCommand() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "send-otp <contact>",
		Short: "Send a one-time password to an email address or phone number",
		Long: `Send a one-time password. Phone numbers need 10 digits; spaces and dashes
are ignored. Sending again to the same contact is possible after 30 seconds,
and a different contact starts the signup over.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := signup.ParseMethod(method)
			if err != nil {
				return err
			}
			flow, err := cc.SignupFlow()
			if err != nil {
				return err
			}
			if err := flow.SendOTP(ctx, args[0], m); err != nil {
				return err
			}

			view := newRegistrationView(flow.Registration())
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				fmt.Fprintf(w, "%s OTP sent to %s\n", s.Mark(true), view.Contact)
				fmt.Fprintln(w, s.Field("next", s.Muted.Render(view.Next)))
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&method, "method", "m", "email", "contact method: email or phone")
	return cmd
}

func newSignupVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [code]",
		Short: "Confirm the one-time password",
		Long:  `Confirm the 4-digit one-time password. The code is prompted for when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			flow, err := cc.SignupFlow()
			if err != nil {
				return err
			}

			var code string
			if len(args) == 1 {
				code = args[0]
			} else if code, err = promptIfInteractive(ux.Prompt{Message: "One-time password", Placeholder: "4 digits", Required: true}, "<code>"); err != nil {
				return err
			}

			id, err := flow.VerifyOTP(ctx, code)
			if err != nil {
				return err
			}

			view := newRegistrationView(flow.Registration())
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				fmt.Fprintf(w, "%s Verified, candidate ID %d\n", s.Mark(true), id)
				fmt.Fprintln(w, s.Field("next", s.Muted.Render(view.Next)))
				return nil
			})
		}),
	}
}

func newSignupProfileCommand() *cobra.Command {
	var name, dob string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Add your name and date of birth",
		Long: `Add your full name and date of birth to complete the signup. The name is
split into first and last name at the first space.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			flow, err := cc.SignupFlow()
			if err != nil {
				return err
			}
			if err := flow.SaveProfile(ctx, name, dob); err != nil {
				return err
			}

			view := newRegistrationView(flow.Registration())
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				fmt.Fprintf(w, "%s Signup complete. Welcome, %s!\n", s.Mark(true), view.Name)
				return nil
			})
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dob")
	return cmd
}

func newSignupStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show signup progress",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			flow, err := cc.SignupFlow()
			if err != nil {
				return err
			}
			view := newRegistrationView(flow.Registration())
			return cc.Printer.Emit(view, view.render)
		}),
	}
}

func newSignupResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard signup progress and start over",
		Long:  `Discard signup progress and start over. Asks for confirmation on a terminal unless --yes is given.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			flow, err := cc.SignupFlow()
			if err != nil {
				return err
			}
			if !yes && ux.ShouldPrompt() && flow.Registration().Step != signup.StepContact {
				ok, err := ux.PromptForConfirmation("Discard your signup progress?", false)
				if err != nil {
					return err
				}
				if !ok {
					return cc.Printer.Emit(newRegistrationView(flow.Registration()), textLine("Signup progress kept."))
				}
			}
			if err := flow.Reset(); err != nil {
				return err
			}
			return cc.Printer.Emit(newRegistrationView(flow.Registration()), textLine("Signup progress cleared."))
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
