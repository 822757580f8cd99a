package cli

import (
	"github.com/spf13/cobra"

	"trade-journal/internal/cache"
)

func addCacheCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Shared metrics cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the Redis tier is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !app.Config.Cache.Enabled {
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{"enabled": false})
				}
				output.Dim("Redis cache disabled; metrics are memoized in process only.")
				return nil
			}
			m := cache.NewRedisMemo(app.Config.Cache.Redis, app.Logger)
			defer m.Close()
			st := m.Breaker().Stats()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"enabled": true,
					"address": app.Config.Cache.Redis.Address,
					"healthy": m.Healthy(),
					"state":   st.State,
				})
			}
			if m.Healthy() {
				output.Success("Redis %s reachable", app.Config.Cache.Redis.Address)
			} else {
				output.Warning("Redis %s unreachable (breaker %s)", app.Config.Cache.Redis.Address, st.State)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every memoized metrics block from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !app.Config.Cache.Enabled {
				output.Dim("Redis cache disabled; nothing to flush.")
				return nil
			}
			m := cache.NewRedisMemo(app.Config.Cache.Redis, app.Logger)
			defer m.Close()
			n, err := m.Flush(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"deleted": n})
			}
			output.Success("Deleted %d cached entries", n)
			return nil
		},
	})

	rootCmd.AddCommand(cmd)
}
