package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		req      models.AnalysisRequest
		fromFile string
	)
	cmd := &cobra.Command{
		Use:   "analyze [url]",
		Short: "Assess a listing from a URL or from supplied text",
		Long: `With a URL argument the listing is resolved through the lookup chain first.
Without one, --listing (or --listing-file, "-" for stdin) supplies the text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (req.ListingText != "" || fromFile != "") {
				return errors.New("pass either a URL or listing text, not both")
			}
			if fromFile != "" {
				text, err := readInput(cmd.InOrStdin(), fromFile)
				if err != nil {
					return err
				}
				req.ListingText = text
			}

			svcs, _, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}

			var payload map[string]any
			if len(args) == 1 {
				payload, err = svcs.Analysis.AnalyzeURL(cmd.Context(), args[0])
			} else {
				payload, err = svcs.Analysis.AnalyzeText(cmd.Context(), req)
			}
			if err != nil {
				return userError(err)
			}
			return writeJSON(cmd.OutOrStdout(), payload)
		},
	}
	cmd.Flags().StringVar(&req.ListingText, "listing", "", "listing description text")
	cmd.Flags().StringVar(&fromFile, "listing-file", "", "read listing text from a file (- for stdin)")
	cmd.Flags().StringVar(&req.HistoryText, "history", "", "auction or damage history text")
	cmd.Flags().StringVar(&req.Price, "price", "", "asking price")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read listing: %w", err)
	}
	return string(data), nil
}
