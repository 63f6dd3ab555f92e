package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"studyhub/internal/account"
	"studyhub/internal/ui"
)

var (
	acctEmail    string
	acctName     string
	acctPassword string
	acctCode     string
	acctPhoto    string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and email a verification code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			svc := a.accounts()
			acct, err := svc.SignUp(ctx, acctEmail, acctName, acctPassword)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Account created for %s\n", acct.Email)
			return sendCode(ctx, cmd, svc, acct.Email)
		})
	},
}

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Email a new verification code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return sendCode(ctx, cmd, a.accounts(), acctEmail)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm your email with the code you received",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			err := a.accounts().Verify(ctx, acctEmail, acctCode)
			switch {
			case errors.Is(err, account.ErrCodeExpired), errors.Is(err, account.ErrTooManyAttempts):
				return fmt.Errorf("%w; run `studyhub resend`", err)
			case err != nil:
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Email verified")
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check your email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.accounts().Login(ctx, acctEmail, acctPassword)
			if errors.Is(err, account.ErrNotVerified) {
				return fmt.Errorf("%w; run `studyhub resend` then `studyhub verify`", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Welcome back, %s\n", displayName(acct.DisplayName, acct.Email))
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.accounts().Profile(ctx, acctEmail)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name     : %s\n", displayName(acct.DisplayName, "(empty)"))
			fmt.Fprintf(out, "Email    : %s\n", acct.Email)
			fmt.Fprintf(out, "Verified : %t\n", acct.Verified)
			if acct.PhotoPath.Valid {
				fmt.Fprintf(out, "Photo    : %s\n", acct.PhotoPath.String)
			}
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change display name and/or photo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.accounts().UpdateProfile(ctx, acctEmail, acctName, acctPhoto)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Profile updated for %s\n", acct.Email)
			return nil
		})
	},
}

var profileRmPhotoCmd = &cobra.Command{
	Use:   "rm-photo",
	Short: "Remove your profile photo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.accounts().RemovePhoto(ctx, acctEmail); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Photo removed")
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, resendCmd, verifyCmd, loginCmd, profileCmd, profileSetCmd, profileRmPhotoCmd} {
		c.Flags().StringVar(&acctEmail, "email", "", "Account email")
		if err := c.MarkFlagRequired("email"); err != nil {
			panic(fmt.Sprintf("Failed to mark email flag as required: %v", err))
		}
	}
	signupCmd.Flags().StringVar(&acctName, "name", "", "Display name")
	signupCmd.Flags().StringVar(&acctPassword, "password", "", "Password (at least 8 characters)")
	loginCmd.Flags().StringVar(&acctPassword, "password", "", "Password")
	verifyCmd.Flags().StringVar(&acctCode, "code", "", "Six-digit code from the email")
	profileSetCmd.Flags().StringVar(&acctName, "name", "", "New display name")
	profileSetCmd.Flags().StringVar(&acctPhoto, "photo", "", "Path to a .png or .jpg photo")
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		if err := c.MarkFlagRequired("password"); err != nil {
			panic(fmt.Sprintf("Failed to mark password flag as required: %v", err))
		}
	}
	if err := verifyCmd.MarkFlagRequired("code"); err != nil {
		panic(fmt.Sprintf("Failed to mark code flag as required: %v", err))
	}

	profileCmd.AddCommand(profileSetCmd, profileRmPhotoCmd)
	rootCmd.AddCommand(signupCmd, resendCmd, verifyCmd, loginCmd, profileCmd)
}

func sendCode(ctx context.Context, cmd *cobra.Command, svc *account.Service, email string) error {
	return ui.SendCode(ctx, svc, email, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
