package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

func (a *App) addProfile(ctx context.Context) error {
	id := a.app.Session.Current()
	if id == nil {
		fmt.Println("Login first.")
		return nil
	}
	name, err := GetSimpleText(a.reader, "Profile name", os.Stdout)
	if err != nil {
		return err
	}
	p, err := a.app.Profiles.Create(ctx, id.UserId, name)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	a.currentProfile = p.Id
	fmt.Printf("Created profile %s (%s)\n", p.Name, p.Id)
	return nil
}

func (a *App) listProfiles(ctx context.Context) error {
	list, err := a.app.Profiles.List(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(list) == 0 {
		fmt.Println("No profiles yet. Use 'addprofile'.")
		return nil
	}
	for _, p := range list {
		marker := " "
		if p.Id == a.currentProfile {
			marker = "*"
		}
		shared := ""
		if p.Shared {
			shared = " [shared]"
		}
		fmt.Printf("%s %s  %s%s\n", marker, p.Id, p.Name, shared)
	}
	return nil
}

func (a *App) useProfile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: use <profile-id>")
		return nil
	}
	p, err := a.app.Profiles.Get(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	a.currentProfile = p.Id
	fmt.Println("Using profile", p.Name)
	return nil
}

func (a *App) share(ctx context.Context) error {
	id := a.app.Session.Current()
	if id == nil || a.currentProfile == "" {
		fmt.Println("Login and select a profile first.")
		return nil
	}
	roleStr, err := GetSimpleText(a.reader,
		"Role to grant (caregiver_editor / patient_mark_only / viewer)", os.Stdout)
	if err != nil {
		return err
	}
	inv, err := a.app.Sharing.CreateInvitation(ctx, id.UserId, a.currentProfile, models.ParseRole(roleStr))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Share link (valid 72h, single use):")
	fmt.Println(" ", inv.ShareLink())
	return nil
}

func (a *App) accept(ctx context.Context, args []string) error {
	var id, token string
	switch len(args) {
	case 1:
		// Accepts the full share link as a single argument.
		u, err := url.Parse(args[0])
		if err != nil || u.Scheme != "medikeep" {
			fmt.Println("Usage: accept <share-link> | accept <id> <token>")
			return nil
		}
		id, token = u.Query().Get("id"), u.Query().Get("token")
	case 2:
		id, token = args[0], args[1]
	default:
		fmt.Println("Usage: accept <share-link> | accept <id> <token>")
		return nil
	}
	p, err := a.app.Sharing.AcceptInvitation(ctx, id, token)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	a.currentProfile = p.Id
	fmt.Println("Joined profile", p.Name)
	return nil
}
