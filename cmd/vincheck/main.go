// Package main implements the vincheck CLI: lookups and analyses against the
// same chains the server runs, printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/vincheck-api/internal/config"
	"github.com/jmylchreest/vincheck-api/internal/http/handlers"
	"github.com/jmylchreest/vincheck-api/internal/logging"
	"github.com/jmylchreest/vincheck-api/internal/service"
	"github.com/jmylchreest/vincheck-api/internal/version"
)

var (
	logLevel string
	lang     string
	compact  bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vincheck",
		Short:         "Vehicle history lookup and listing analysis",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr (debug/info/warn/error)")
	root.PersistentFlags().StringVar(&lang, "lang", "ka", "language for error messages (ka/en)")
	root.PersistentFlags().BoolVar(&compact, "compact", false, "print single-line JSON")

	root.AddCommand(newLookupCmd(), newAnalyzeCmd(), newBackendsCmd(), newOpenAPICmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadServices reads the environment configuration and wires the services
// with logs going to stderr so stdout stays machine-readable.
func loadServices(ctx context.Context) (*service.Services, *slog.Logger, error) {
	logger := logging.NewWithOptions(logging.Options{Writer: os.Stderr, Format: "text", Level: logLevel})
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	svcs, err := service.NewServices(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svcs, logger, nil
}

// userError converts an operation failure into the localized message the
// HTTP API would have returned.
func userError(err error) error {
	return fmt.Errorf("%s (%w)", handlers.Localize(lang, handlers.MessageFor(err)), err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
