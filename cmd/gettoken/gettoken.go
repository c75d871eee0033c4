// Package gettoken provides the CLI for obtaining a Keycloak access token.
package gettoken

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	// Import all Kubernetes client auth plugins
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/pytoccaz/keycloak-token/internal/keycloak"
	"github.com/pytoccaz/keycloak-token/internal/result"
)

// Run executes the get-token command with the given arguments
func Run(args []string) {
	fs := flag.NewFlagSet("get-token", flag.ExitOnError)
	opts := &Options{}
	opts.BindFlags(fs)

	// Parse flags
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	zapOpts := zap.Options{Development: opts.Verbose}
	log := zap.New(zap.UseFlagOptions(&zapOpts))

	// Validate options
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		os.Exit(1)
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	// Fetch the token; the failure message is surfaced verbatim
	if err := runGetToken(ctx, opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runGetToken(ctx context.Context, opts *Options, log logr.Logger) error {
	// Get token configuration
	cfg, err := opts.GetTokenConfig(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to get token configuration: %w", err)
	}

	// Create client and fetch the token
	client := keycloak.NewClient(cfg, log)

	token, err := client.FetchToken(ctx)
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "Obtained access token from %s\n", client.TokenURL())
	}

	// Write output. The token is a secret and must not reach any log path.
	writer := result.NewWriter(result.WriterOptions{
		OutputFile: opts.Output,
		Format:     opts.Format,
	})

	if err := writer.Write(result.TokenResult{Token: token}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
