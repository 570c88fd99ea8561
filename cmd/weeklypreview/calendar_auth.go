package weeklypreview

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/igorsilveira/weeklypreview/pkg/calendar"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var calendarAuthCmd = &cobra.Command{
	Use:   "calendar-auth",
	Short: "Authorize read-only access to Google Calendar and save the token",
	RunE:  runCalendarAuth,
}

func runCalendarAuth(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render("Google Calendar authentication"))
	fmt.Fprintf(out, "%s %s\n\n", labelStyle.Render("Using credentials from:"), cfg.Calendar.CredentialsPath)

	conf, err := calendar.OAuthConfig(cfg.Calendar.CredentialsPath)
	if err != nil {
		return err
	}

	authURL := conf.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(out, "Open this URL in your browser and approve access:")
	fmt.Fprintf(out, "\n  %s\n\n", authURL)
	fmt.Fprint(out, "Paste the authorization code (or the full redirect URL): ")

	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return errors.New("no authorization code entered")
	}
	code := authCode(sc.Text())
	if code == "" {
		return errors.New("no authorization code entered")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := calendar.SaveToken(cfg.Calendar.TokenPath, tok); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s Token saved to: %s\n", mark(true), cfg.Calendar.TokenPath)
	fmt.Fprintln(out, dimStyle.Render("You can now run: weeklypreview run"))
	return nil
}

// authCode accepts either the bare code or the redirect URL that carries it
// in its query string.
func authCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "://") {
		return input
	}
	u, err := url.Parse(input)
	if err != nil {
		return ""
	}
	return u.Query().Get("code")
}
