package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/coordinator"
	"gitea.kood.tech/saathi/matchmaking/client/interest"
)

// readPassword takes the flag value, or the first line of piped stdin.
func (c *cli) readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if f, ok := c.in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "", errors.New("--password is required, or pipe it on stdin")
	}
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) registerCmd() *cobra.Command {
	var req api.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := c.readPassword(req.Password)
			if err != nil {
				return err
			}
			req.Password = pw
			if err := c.sess.Register(cmd.Context(), req); err != nil {
				return describe(err)
			}
			c.println(successStyle.Render(fmt.Sprintf("✓ Welcome, %s. You are signed in.", c.sess.User().DisplayName)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password, 8 to 72 characters")
	f.StringVar(&req.DisplayName, "name", "", "display name")
	f.StringVar(&req.Gender, "gender", "", "male or female")
	f.StringVar(&req.DateOfBirth, "dob", "", "date of birth, YYYY-MM-DD")
	for _, name := range []string{"email", "name", "gender", "dob"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := c.readPassword(password)
			if err != nil {
				return err
			}
			if err := c.sess.Login(cmd.Context(), email, pw); err != nil {
				return describe(err)
			}
			c.println(successStyle.Render(fmt.Sprintf("✓ Signed in as %s.", c.sess.User().DisplayName)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c.sess.Logout(cmd.Context())
			c.println("Signed out.")
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show your profile and both sides of your interests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(); err != nil {
				return err
			}
			u := c.sess.User()
			c.println(c.profileCard(&u.Profile))
			c.println(c.interestTable("Sent", u.ExpressedInterests))
			c.println(c.interestTable("Received", u.ReceivedInterests))
			return nil
		},
	}
}

func (c *cli) interestTable(title string, entries []api.InterestEntry) string {
	if len(entries) == 0 {
		return titleStyle.Render(title) + "\n" + mutedStyle.Render("  none")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		view := c.coord.View(e.User.ID)
		rows = append(rows, []string{
			fmt.Sprint(e.User.ID),
			orDash(e.User.DisplayName),
			e.Status,
			e.SentAt.Local().Format("2006-01-02 15:04"),
			nextStep(view),
		})
	}
	return titleStyle.Render(title) + "\n" + profileTable([]string{"ID", "NAME", "STATUS", "SENT", "NEXT"}, rows)
}

func nextStep(v coordinator.View) string {
	steps := make([]string, 0, len(v.Buttons))
	for _, b := range v.Buttons {
		steps = append(steps, commandFor[b.Action])
	}
	return strings.Join(steps, " | ")
}

// describe turns a store or client error into a short sentence.
func describe(err error) error {
	var apiErr *api.Error
	switch {
	case errors.Is(err, interest.ErrAuthRequired), errors.Is(err, api.ErrUnauthorized):
		if errors.As(err, &apiErr) && apiErr.Code == "invalid_credentials" {
			return errors.New("wrong email or password")
		}
		return errNotSignedIn
	case errors.As(err, &apiErr) && apiErr.Code != "":
		return fmt.Errorf("store refused the request: %s", strings.ReplaceAll(apiErr.Code, "_", " "))
	}
	return err
}
