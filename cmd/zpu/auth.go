package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joseph-ayodele/zero-paper-user/internal/client"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// passwordFlag falls back to ZPU_PASSWORD so secrets can stay out of shell history.
func passwordFlag(fs *flag.FlagSet, name string) *string {
	return fs.String(name, os.Getenv("ZPU_PASSWORD"), "password (default $ZPU_PASSWORD)")
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	var (
		email    = fs.String("email", "", "account email")
		password = passwordFlag(fs, "password")
		remember = fs.Bool("remember", false, "keep the session after this terminal closes")
	)
	if err := parse(fs, args); err != nil {
		return err
	}
	fmt.Println("Logging in...")
	user, err := a.auth.Login(ctx, *email, *password, *remember).Unwrap()
	if err != nil {
		return err
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	fmt.Printf("Welcome back, %s.\n", name)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	msg, err := a.auth.Logout(ctx).Unwrap()
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	var r client.Registration
	fs.StringVar(&r.Name, "name", "", "full name")
	fs.StringVar(&r.Email, "email", "", "account email")
	password := passwordFlag(fs, "password")
	fs.StringVar(&r.OTP, "otp", "", "code from 'zpu otp send'")
	if err := parse(fs, args); err != nil {
		return err
	}
	r.Password = *password
	return printResult(a.auth.Register(ctx, r).Unwrap())
}

func cmdOTP(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: otp needs send or verify", errUsage)
	}
	fs := newFlags("otp " + args[0])
	email := fs.String("email", "", "account email")
	otp := fs.String("otp", "", "one-time code")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	switch args[0] {
	case "send":
		return printResult(a.auth.SendOTP(ctx, *email).Unwrap())
	case "verify":
		return printResult(a.auth.VerifyOTP(ctx, *email, *otp).Unwrap())
	default:
		return fmt.Errorf("%w: unknown otp action %q", errUsage, args[0])
	}
}

func cmdPassword(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] != "reset" {
		return fmt.Errorf("%w: password needs reset", errUsage)
	}
	fs := newFlags("password reset")
	var p client.PasswordReset
	fs.StringVar(&p.Email, "email", "", "account email")
	fs.StringVar(&p.OTP, "otp", "", "one-time code")
	newPassword := passwordFlag(fs, "new-password")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	p.NewPassword = *newPassword
	return printResult(a.auth.ResetPassword(ctx, p).Unwrap())
}

// cmdAccount deletes the account in two steps: without -otp it mails the
// confirmation code, with -otp it performs the deletion.
func cmdAccount(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] != "delete" {
		return fmt.Errorf("%w: account needs delete", errUsage)
	}
	fs := newFlags("account delete")
	email := fs.String("email", "", "account email")
	otp := fs.String("otp", "", "code from the confirmation email")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	if *otp == "" {
		if err := printResult(a.auth.SendDeleteOTP(ctx, *email).Unwrap()); err != nil {
			return err
		}
		fmt.Println("Run again with -otp to confirm the deletion.")
		return nil
	}
	return printResult(a.auth.DeleteAccount(ctx, *email, *otp).Unwrap())
}

func printResult(msg string, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
