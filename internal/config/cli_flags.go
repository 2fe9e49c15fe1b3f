package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	cmd.PersistentFlags().String("proxy", "", "Comma-separated HTTP/SOCKS5 proxies for upstream requests")
	cmd.PersistentFlags().String("timeout", "", "Timeout for each upstream request (e.g. 30s, 0 = none)")
	cmd.PersistentFlags().String("user-agent", "", "User agent sent upstream")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra upstream header (\"Key: Value\"), repeatable")
	cmd.PersistentFlags().String("upstream", "", "Bulletin index URL")
	cmd.PersistentFlags().String("addr", "", "Listen address for the API server")
	cmd.PersistentFlags().String("config", "", "Path to a .env configuration file (optional)")
}
