package cli

import (
	"context"
	"fmt"
	"os"
)

// Register prompts for credentials and creates a backend account, then
// logs straight in so the sync engine picks the identity up.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	if err := a.app.Session.Register(ctx, email, string(password)); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}
	fmt.Println("Registered.")
	return a.loginWith(ctx, email, string(password))
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	return a.loginWith(ctx, email, string(password))
}

func (a *App) loginWith(ctx context.Context, email, password string) error {
	if err := a.app.Session.Login(ctx, email, password); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}
	fmt.Println("Logged in as", email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.currentProfile = ""
	if err := a.app.Session.Logout(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
