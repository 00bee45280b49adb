package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/benny59/architetti/internal/export"
	"github.com/benny59/architetti/internal/logger"
)

func exportCommand() *cobra.Command {
	var source, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored records of a source to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !slices.Contains(a.cfg.Nicknames(), source) {
				return fmt.Errorf("unknown source %q", source)
			}
			if out == "" {
				out = source + ".xlsx"
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			n, err := export.Records(ctx, a.store, source, f)
			if err != nil {
				return err
			}

			a.log.Info("Export complete",
				logger.String("source", source),
				logger.String("file", out),
				logger.Int("records", n),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source nickname")
	cmd.Flags().StringVar(&out, "out", "", "output file (default <source>.xlsx)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}
