package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/internal/auth"
	"github.com/law-makers/leadharvest/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	loginURL      string
	waitSelector  string
	loginTimeout  time.Duration
	importCookie  string
	importDomain  string
	sessionsForce bool
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved map-service sessions",
	Long: `Capture, import, list and delete cookie sessions for the map service.

A session holds the consent (and optionally sign-in) cookies of a browser that
already got past the consent page. Name it with --session or the maps_session
setting and it is applied to every search tab before navigation.

Sessions are stored in your OS keyring, or as files under <data-dir>/sessions
when no keyring is available.`,
	Example: `  # Accept the consent dialog in a visible browser and save the cookies
  leadharvest session login consent

  # Import a Cookie header copied from your own browser
  leadharvest session import consent --cookie="SOCS=CAESEwgDEgk...; NID=511=..."

  # Use it
  leadharvest scrape bakery Reno --session=consent`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login <session-name>",
	Short: "Open a visible browser and save its cookies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionLogin,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Save cookies from a Cookie header",
	Long: `Creates a session from a Cookie request header. Pass it with --cookie or pipe
it on stdin. Useful in containers where no visible browser can be opened.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionImport,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLoginCmd, sessionImportCmd, sessionListCmd, sessionDeleteCmd)

	sessionLoginCmd.Flags().StringVar(&loginURL, "url", auth.DefaultLoginURL, "Page to open")
	sessionLoginCmd.Flags().StringVarP(&waitSelector, "wait", "w", "", "Save as soon as this CSS selector is visible instead of waiting for Enter")
	sessionLoginCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "Give up after this long")

	sessionImportCmd.Flags().StringVar(&importCookie, "cookie", "", "Cookie header value (\"name=value; name2=value2\"), read from stdin when empty")
	sessionImportCmd.Flags().StringVar(&importDomain, "domain", ".google.com", "Domain the cookies belong to")

	sessionDeleteCmd.Flags().BoolVarP(&sessionsForce, "yes", "y", false, "Do not ask for confirmation")
}

func runSessionLogin(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	name := args[0]

	fmt.Printf("\n%s\n", ui.Bold("🔐 Session Capture"))
	fmt.Printf("%s\n\n", ui.Dim("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("  %s\n", ui.Label("Session", name))
	fmt.Printf("  %s\n", ui.Label("URL", loginURL))
	if waitSelector != "" {
		fmt.Printf("  %s\n", ui.Label("Waiting", waitSelector))
	}
	fmt.Printf("  %s\n\n", ui.Label("Timeout", loginTimeout.String()))

	session, err := auth.InteractiveLogin(cmd.Context(), auth.LoginOptions{
		SessionName:  name,
		URL:          loginURL,
		ChromePath:   a.Config.ChromePath,
		WaitSelector: waitSelector,
		Timeout:      loginTimeout,
		Confirm: func() error {
			fmt.Println("Accept the consent dialog in the browser window, then press Enter here.")
			_, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("session capture failed: %w", err)
	}

	return saveSession(a.Sessions, session)
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	name := args[0]

	header := importCookie
	if header == "" {
		fmt.Println("Paste the Cookie header and press Enter:")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read cookies: %w", err)
		}
		header = line
	}
	header = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Cookie:"))

	cookies := auth.ParseCookieHeader(header, importDomain)
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies imported")
	}

	log.Debug().Int("cookies", len(cookies)).Str("domain", importDomain).Msg("Parsed cookie header")
	return saveSession(a.Sessions, &auth.SessionData{
		Name:      name,
		URL:       auth.DefaultLoginURL,
		Cookies:   cookies,
		CreatedAt: time.Now(),
		ExpiresAt: auth.EarliestExpiry(cookies),
	})
}

func saveSession(store *auth.Store, session *auth.SessionData) error {
	if err := store.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println(ui.Success(fmt.Sprintf("\n✓ Session '%s' saved (%d cookies)", session.Name, len(session.Cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\n%s\n", ui.Bold("Use it with:"))
	fmt.Printf("  %s\n\n", ui.ColorCyan+"leadharvest scrape <keyword> <location> --session="+session.Name+ui.ColorReset)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)

	names, err := a.Sessions.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("\nNo saved sessions found.")
		fmt.Println("\nCreate one with:")
		fmt.Println("  leadharvest session login <name>")
		fmt.Println()
		return nil
	}

	fmt.Printf("\n📋 Saved Sessions (%d)\n", len(names))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for i, name := range names {
		fmt.Printf("\n%d. %s\n", i+1, name)

		session, err := a.Sessions.Load(name)
		if err != nil {
			fmt.Printf("   ⚠️  %v\n", err)
			continue
		}
		fmt.Printf("   Cookies: %d\n", len(session.Cookies))
		fmt.Printf("   Created: %s\n", session.CreatedAt.Format(time.RFC1123))
		if !session.ExpiresAt.IsZero() {
			fmt.Printf("   Expires: %s (in %s)\n",
				session.ExpiresAt.Format(time.RFC1123),
				time.Until(session.ExpiresAt).Round(time.Hour))
		}
	}

	fmt.Println()
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	name := args[0]

	if !sessionsForce {
		fmt.Print(ui.Warn(fmt.Sprintf("\nDelete session '%s'? [y/N]: ", name)))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := a.Sessions.Delete(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("\n✓ Session '%s' deleted.\n\n", name)
	return nil
}
