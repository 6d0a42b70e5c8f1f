package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/connectors/filesystem"
	"github.com/custodia-labs/artsync/internal/connectors/rpc"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/logger"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage the artwork provider",
	Args:  cobra.NoArgs,
	RunE:  runProviderShow,
}

var providerSelectCmd = &cobra.Command{
	Use:   "select <locator>",
	Short: "Select the current provider",
	Long: `Makes the provider at the given content locator current.

Locators:
  file:///path/to/dir       a directory of images
  /path/to/dir              shorthand for the above
  rpc://host:port           a provider served over JSON-RPC (TCP)
  rpc+unix:///path.sock     a provider served over JSON-RPC (unix socket)`,
	Args: cobra.ExactArgs(1),
	RunE: runProviderSelect,
}

var providerServeCmd = &cobra.Command{
	Use:   "serve <dir>",
	Short: "Serve a directory of images as a JSON-RPC provider",
	Long: `Exposes a directory of images over JSON-RPC so other artsync processes
can select it with an rpc:// or rpc+unix:// locator. Changes to the directory
are pushed to subscribed clients.`,
	Args:        cobra.ExactArgs(1),
	Annotations: noBootstrap(),
	RunE:        runProviderServe,
}

func init() {
	providerSelectCmd.Flags().String("id", "", "provider id (derived from the locator by default)")
	providerSelectCmd.Flags().Bool("no-load", false, "do not load artwork after selecting")
	providerServeCmd.Flags().String("listen", "rpc://127.0.0.1:7788", "rpc or rpc+unix locator to listen on")
	providerCmd.AddCommand(providerSelectCmd)
	providerCmd.AddCommand(providerServeCmd)
	rootCmd.AddCommand(providerCmd)
}

func runProviderShow(cmd *cobra.Command, _ []string) error {
	if err := requireService("provider", providerService != nil); err != nil {
		return err
	}
	provider, err := providerService.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get provider: %w", err)
	}
	if provider == nil {
		cmd.Println("No provider selected.")
		return nil
	}
	cmd.Printf("Provider: %s\n", provider.ID)
	cmd.Printf("Locator:  %s\n", provider.ContentURI)
	cmd.Printf("Supports next artwork: %s\n", yesNo(provider.SupportsNextArtwork))
	return nil
}

func runProviderSelect(cmd *cobra.Command, args []string) error {
	if err := requireService("provider", providerService != nil); err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	noLoad, err := cmd.Flags().GetBool("no-load")
	if err != nil {
		return err
	}

	locator := normaliseLocator(args[0])
	provider, err := providerService.Select(cmd.Context(), id, locator)
	if err != nil {
		return fmt.Errorf("failed to select provider: %w", err)
	}
	cmd.Printf("Provider %s selected (%s).\n", provider.ID, provider.ContentURI)

	if noLoad || artworkLoader == nil {
		return nil
	}
	switch artworkLoader.LoadNext(cmd.Context()) {
	case domain.ResultSuccess:
		cmd.Println("Artwork loaded.")
	default:
		cmd.Println("No artwork loaded yet; the daemon will retry.")
	}
	return nil
}

// normaliseLocator turns a bare directory path into a file:// locator.
func normaliseLocator(arg string) string {
	if strings.Contains(arg, "://") || strings.HasPrefix(arg, filesystem.Scheme+":") {
		return arg
	}
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filesystem.ContentURI(arg)
	}
	return arg
}

func runProviderServe(cmd *cobra.Command, args []string) error {
	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}

	dir := filesystem.ResolvePath(args[0])
	provider := filesystem.NewProvider(dir)
	if err := provider.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveProvider(ctx, cmd, provider, listen)
}

func serveProvider(ctx context.Context, cmd *cobra.Command, provider *filesystem.Provider, listen string) error {
	ln, err := rpc.Listen(listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}

	server := rpc.NewServer(provider)
	watcher := filesystem.New()
	defer watcher.Close()

	stopWatch, err := watcher.Watch(ctx, filesystem.ContentURI(provider.Root()), func() {
		logger.Debug("provider directory changed; notifying %d subscribers", server.Subscribers())
		server.NotifyChanged()
	})
	if err != nil {
		ln.Close()
		return fmt.Errorf("watching %s: %w", provider.Root(), err)
	}
	defer stopWatch()

	cmd.Printf("Serving %s on %s\n", provider.Root(), listen)
	return server.Serve(ctx, ln)
}
