package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"ai-minutes-client/internal/bootstrap"
	"ai-minutes-client/internal/dto"
)

// newCLIApp creates the CLI application with all commands. The CLI is the
// presentation layer; every state transition lives in the services.
func newCLIApp(c *bootstrap.Container) *cli.App {
	// Forced logout (401 on any call) points the user back at sign-in.
	c.SessionService.SetOnForcedLogout(func() {
		color.Yellow("Your session has expired. Run `minutes login` to sign in again.")
	})

	app := &cli.App{
		Name:    "minutes",
		Usage:   "AI meeting minutes client",
		Version: Version,
		Commands: []*cli.Command{
			registerCmd(c),
			loginCmd(c),
			googleLoginCmd(c),
			logoutCmd(c),
			whoamiCmd(c),
			forgotPasswordCmd(c),
			resetPasswordCmd(c),
			listCmd(c),
			showCmd(c),
			editCmd(c),
			deleteCmd(c),
			uploadCmd(c),
			exportCmd(c),
		},
	}
	return app
}

// Version is stamped at build time.
var Version = "dev"

// restore rehydrates the session once before an authenticated command.
func restore(c *bootstrap.Container, ctx *cli.Context) {
	c.SessionService.Restore(ctx.Context)
}

// requireAuth gates document commands the way the original gated routes.
func requireAuth(c *bootstrap.Container, ctx *cli.Context) error {
	restore(c, ctx)
	if !c.SessionService.IsAuthenticated() {
		return cli.Exit("You are not signed in. Run `minutes login` first.", 1)
	}
	return nil
}

func sessionErr(c *bootstrap.Container, fallback string) cli.ExitCoder {
	if msg := c.SessionService.Snapshot().Error; msg != "" {
		return cli.Exit(msg, 1)
	}
	return cli.Exit(fallback, 1)
}

func registerCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "Full name"},
			&cli.StringFlag{Name: "email", Required: true, Usage: "Email address"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "Password"},
		},
		Action: func(ctx *cli.Context) error {
			ok := c.SessionService.Register(ctx.Context, &dto.RegisterRequest{
				Name:     ctx.String("name"),
				Email:    ctx.String("email"),
				Password: ctx.String("password"),
			})
			if !ok {
				return sessionErr(c, "Registration failed")
			}
			printSignedIn(c)
			return nil
		},
	}
}

func loginCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "Email address"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "Password"},
		},
		Action: func(ctx *cli.Context) error {
			ok := c.SessionService.Login(ctx.Context, &dto.LoginRequest{
				Email:    ctx.String("email"),
				Password: ctx.String("password"),
			})
			if !ok {
				return sessionErr(c, "Login failed")
			}
			printSignedIn(c)
			return nil
		},
	}
}

func googleLoginCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "google-login",
		Usage: "Sign in with Google",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code", Usage: "Authorization code from the consent page"},
		},
		Action: func(ctx *cli.Context) error {
			code := ctx.String("code")
			if code == "" {
				fmt.Println("Open the URL below, authorize, then re-run with --code:")
				fmt.Println(c.Google.LoginURL())
				return nil
			}
			if ok := c.SessionService.GoogleLogin(ctx.Context, code); !ok {
				return sessionErr(c, "Google login failed")
			}
			printSignedIn(c)
			return nil
		},
	}
}

func logoutCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and discard the stored session",
		Action: func(ctx *cli.Context) error {
			restore(c, ctx)
			if ok := c.SessionService.Logout(ctx.Context); !ok {
				// Local cleanup already happened; the remote call failed.
				color.Yellow("Signed out locally, but the server could not be notified.")
				return nil
			}
			color.Green("Signed out.")
			return nil
		},
	}
}

func whoamiCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(ctx *cli.Context) error {
			restore(c, ctx)
			snap := c.SessionService.Snapshot()
			if !snap.IsAuthenticated {
				return cli.Exit("Not signed in.", 1)
			}
			fmt.Printf("%s <%s>\n", snap.CurrentUser.Name, snap.CurrentUser.Email)
			if !snap.TokenExpiresAt.IsZero() {
				fmt.Printf("Session valid until %s\n", snap.TokenExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func forgotPasswordCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "forgot-password",
		Usage: "Request a password reset email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "Account email address"},
		},
		Action: func(ctx *cli.Context) error {
			if ok := c.SessionService.ForgotPassword(ctx.Context, ctx.String("email")); !ok {
				return sessionErr(c, "Could not send reset email")
			}
			color.Green("If the address exists, a reset email is on its way.")
			return nil
		},
	}
}

func resetPasswordCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "reset-password",
		Usage: "Set a new password using a reset token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Required: true, Usage: "Reset token from the email"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "New password"},
		},
		Action: func(ctx *cli.Context) error {
			if ok := c.SessionService.ResetPassword(ctx.Context, ctx.String("token"), ctx.String("password")); !ok {
				return sessionErr(c, "Could not reset password")
			}
			color.Green("Password updated. You can sign in now.")
			return nil
		},
	}
}

func listCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List your documents",
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			if ok := c.DocumentService.FetchAll(ctx.Context); !ok {
				return cli.Exit(c.DocumentService.Err(), 1)
			}
			docs := c.DocumentService.Documents()
			if len(docs) == 0 {
				fmt.Println("No documents yet. Upload a recording with `minutes upload`.")
				return nil
			}
			fmt.Println(documentTable(docs))
			return nil
		},
	}
}

func showCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a document's summary",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "transcript", Usage: "Show the raw transcription instead of the summary"},
		},
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			id := ctx.Args().First()
			if id == "" {
				return cli.Exit("usage: minutes show <id>", 1)
			}
			doc := c.DocumentService.FetchByID(ctx.Context, id)
			if doc == nil {
				return cli.Exit(c.DocumentService.Err(), 1)
			}

			color.New(color.Bold).Println(doc.Title)
			fmt.Printf("Created %s\n\n", doc.CreatedAt.Format("January 2, 2006"))
			if ctx.Bool("transcript") {
				fmt.Println(doc.Transcription)
			} else {
				fmt.Println(doc.EffectiveContent())
			}
			return nil
		},
	}
}

func editCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Update a document's title or summary",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "New title"},
			&cli.StringFlag{Name: "summary-file", Usage: "File containing the edited summary (markdown)"},
		},
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			id := ctx.Args().First()
			if id == "" {
				return cli.Exit("usage: minutes edit <id>", 1)
			}

			patch := &dto.UpdateDocumentRequest{}
			if title := ctx.String("title"); title != "" {
				patch.Title = &title
			}
			if path := ctx.String("summary-file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("could not read %s: %v", path, err), 1)
				}
				summary := string(data)
				patch.EditedSummary = &summary
			}
			if patch.Title == nil && patch.EditedSummary == nil {
				return cli.Exit("nothing to update: pass --title and/or --summary-file", 1)
			}

			if doc := c.DocumentService.Update(ctx.Context, id, patch); doc == nil {
				return cli.Exit(c.DocumentService.Err(), 1)
			}
			color.Green("Saved.")
			return nil
		},
	}
}

func deleteCmd(c *bootstrap.Container) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a document",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip confirmation"},
		},
		Action: func(ctx *cli.Context) error {
			if err := requireAuth(c, ctx); err != nil {
				return err
			}
			id := ctx.Args().First()
			if id == "" {
				return cli.Exit("usage: minutes delete <id>", 1)
			}
			if !ctx.Bool("yes") && !confirm(fmt.Sprintf("Delete document %s? This cannot be undone.", id)) {
				fmt.Println("Cancelled.")
				return nil
			}
			if ok := c.DocumentService.DeleteByID(ctx.Context, id); !ok {
				return cli.Exit(c.DocumentService.Err(), 1)
			}
			color.Green("Deleted.")
			return nil
		},
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
