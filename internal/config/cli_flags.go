package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (default leadharvest.yml if present)")
	cmd.PersistentFlags().String("data-dir", DefaultDataDir, "Directory for the database and saved sessions")
	cmd.PersistentFlags().String("db", "", "SQLite database path (default <data-dir>/leads.db)")
	cmd.PersistentFlags().String("proxy", "", "Proxy or comma separated proxy list used while harvesting websites")
	cmd.PersistentFlags().String("timeout", DefaultHTTPTimeout.String(), "HTTP timeout for website requests")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header for website requests (\"Key: Value\"), repeatable")
	cmd.PersistentFlags().String("chrome-path", "", "Path to the Chrome or Chromium executable")
	cmd.PersistentFlags().Bool("headless", DefaultBrowserHeadless, "Run the browser headless")
	cmd.PersistentFlags().String("renderer", DefaultRenderer, "How websites are loaded while harvesting: chrome or static")
	cmd.PersistentFlags().String("redis-url", "", "Cache fetched pages in redis instead of memory")
	cmd.PersistentFlags().String("session", "", "Saved map-service session to apply before searching")
}
