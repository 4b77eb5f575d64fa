package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to MediKeep (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	addProfile(ctx context.Context) error
	listProfiles(ctx context.Context) error
	useProfile(ctx context.Context, args []string) error
	share(ctx context.Context) error
	accept(ctx context.Context, args []string) error
	addMedication(ctx context.Context) error
	listMedications(ctx context.Context) error
	today(ctx context.Context) error
	take(ctx context.Context, args []string) error
	skip(ctx context.Context, args []string) error
	adherence(ctx context.Context) error
}

// runREPL reads lines, takes the first token as the command and dispatches.
// Handler errors are reported by the handlers themselves; the loop only
// cares about EOF and exit.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("mk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Commands: profiles, addprofile, use, share, accept, meds, addmed, today, take, skip, adherence, logout, exit")
			} else {
				printlnFn("Commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "profiles":
			_ = a.listProfiles(ctx)
		case "addprofile":
			_ = a.addProfile(ctx)
		case "use":
			_ = a.useProfile(ctx, args)
		case "share":
			_ = a.share(ctx)
		case "accept":
			_ = a.accept(ctx, args)
		case "meds", "list":
			_ = a.listMedications(ctx)
		case "addmed":
			_ = a.addMedication(ctx)
		case "today":
			_ = a.today(ctx)
		case "take":
			_ = a.take(ctx, args)
		case "skip":
			_ = a.skip(ctx, args)
		case "adherence":
			_ = a.adherence(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
