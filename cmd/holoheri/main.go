package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/HoloHeri/internal/client"
)

// globalOptions point the API commands at a server.
type globalOptions struct {
	server     string
	prefix     string
	legacyHost string
	token      string
}

func (o *globalOptions) client() (*client.Client, error) {
	opts := []client.Option{
		client.WithPrefix(o.prefix),
		client.WithLegacyHost(o.legacyHost),
	}
	if o.token != "" {
		opts = append(opts, client.WithToken(o.token))
	}
	return client.New(o.server, opts...)
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "holoheri: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "holoheri",
		Short: "HoloHeri development and catalogue CLI",
		Long: `holoheri manages the local development stack and talks to a running HoloHeri server:
listing, searching, creating and deleting heritage sites, and logging in.`,
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("HOLOHERI_API_BASE_URL", "http://localhost:4000"), "Server origin")
	flags.StringVar(&opts.prefix, "prefix", envOr("HOLOHERI_ROUTE_PREFIX", client.DefaultPrefix), "Route prefix of the API")
	flags.StringVar(&opts.legacyHost, "legacy-host", envOr("HOLOHERI_LEGACY_HOST", client.DefaultLegacyHost), "host:port of references written by an older server")
	flags.StringVar(&opts.token, "token", os.Getenv("HOLOHERI_TOKEN"), "Login token for write commands")

	cmd.AddCommand(
		newStackCmd(),
		newTestCmd(),
		newRunCmd(),
		newSitesCmd(opts),
		newLoginCmd(opts),
	)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
