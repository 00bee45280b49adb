package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List site registrations with their stored record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			regs, _, err := a.registrations()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Nickname", "Enabled", "Seeds", "Exclude", "Stored"})

			for _, reg := range regs {
				n, err := a.store.Count(ctx, reg.Nickname)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{
					reg.Nickname,
					reg.Enabled,
					strings.Join(reg.Seeds, "\n"),
					strings.Join(reg.Exclude, ", "),
					n,
				})
			}

			t.Render()
			return nil
		},
	}
}
