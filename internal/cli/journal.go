package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
)

func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newJournalCmd(app))
	rootCmd.AddCommand(newSettingsCmd(app))
}

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"journals"},
		Short:   "Manage journals",
	}
	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalImportCmd(app))
	cmd.AddCommand(newJournalExportCmd(app))
	cmd.AddCommand(newJournalDeleteCmd(app))
	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List journals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			journals, err := s.ListJournals(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(journals)
			}
			if len(journals) == 0 {
				output.Dim("No journals. Import one with 'journal journal import <file>'.")
				return nil
			}
			table := NewTable(output, "ID", "NAME", "CAPITAL", "TRADES", "UNSEEN", "UPDATED")
			for _, j := range journals {
				table.AddRow(j.ID, j.Name, FormatMoney(j.Capital),
					fmt.Sprintf("%d", j.Trades), fmt.Sprintf("%d", j.Unseen), FormatDateTime(j.UpdatedAt))
			}
			table.Render()
			return nil
		},
	}
}

// readJSON decodes a JSON file, or stdin when path is "-".
func readJSON(path string, v interface{}) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func newJournalImportCmd(app *App) *cobra.Command {
	var noRecompute bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a journal from JSON",
		Long: `Import a journal from a JSON file ("-" reads stdin). An existing journal
with the same id is replaced, keeping alerts already in its log. Derived
metrics are recomputed unless --no-recompute is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			var j models.Journal
			if err := readJSON(args[0], &j); err != nil {
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			if !noRecompute {
				settings, err := app.settings(ctx, s)
				if err != nil {
					return err
				}
				if err := app.recompute(ctx, &j, settings); err != nil {
					return err
				}
			}
			if err := s.SaveJournal(ctx, &j); err != nil {
				return err
			}
			app.Logger.Info().Str("journal_id", j.ID).Int("trades", len(j.Trades)).Msg("Journal imported")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": j.ID, "trades": len(j.Trades)})
			}
			output.Success("Imported journal %s (%d trades)", j.ID, len(j.Trades))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRecompute, "no-recompute", false, "keep derived metrics from the file")
	return cmd
}

func newJournalExportCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <journal-id>",
		Short: "Export a journal as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}
			j, err := s.GetJournal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return NewOutput(cmd).JSON(j)
			}
			data, err := json.MarshalIndent(j, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			NewOutput(cmd).Success("Exported journal %s to %s", j.ID, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newJournalDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <journal-id>",
		Short: "Delete a journal with its trades and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.DeleteJournal(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewOutput(cmd).Success("Deleted journal %s", args[0])
			return nil
		},
	}
}

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage pricing profiles, keywords and the analysis taxonomy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the application settings from JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings models.AppSettings
			if err := readJSON(args[0], &settings); err != nil {
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.SaveSettings(cmd.Context(), &settings); err != nil {
				return err
			}
			NewOutput(cmd).Success("Settings saved (%d pricing profiles)", len(settings.Pricing))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the application settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}
			settings, err := app.settings(cmd.Context(), s)
			if err != nil {
				return err
			}
			if settings == nil {
				settings = &models.AppSettings{}
			}
			return NewOutput(cmd).JSON(settings)
		},
	})

	return cmd
}
