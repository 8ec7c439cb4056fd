package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvcam/vcamd/internal/logging"
	"github.com/openvcam/vcamd/internal/updater"
)

// CreateUpdateCmd creates the update command: check for and optionally apply
// a newer release without going through the HTTP API.
func CreateUpdateCmd() *cobra.Command {
	var repository string
	var prerelease bool
	var apply bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and apply binary updates",
		Long:  `Queries the release repository for a newer version. With --apply the new binary replaces the running one and the process restarts.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("update")

			service, err := updater.NewService(&updater.Options{
				Repository: repository,
				Prerelease: prerelease,
			})
			if err != nil {
				logger.Error("Failed to create updater", "error", err)
				os.Exit(1)
			}
			if !service.IsEnabled() {
				logger.Error("Updates disabled", "reason", service.DisabledReason())
				os.Exit(1)
			}

			ctx := context.Background()
			info, err := service.CheckForUpdate(ctx)
			if err != nil {
				logger.Error("Update check failed", "error", err)
				os.Exit(1)
			}

			if !info.UpdateAvailable {
				fmt.Printf("Already up to date (%s)\n", info.CurrentVersion)
				return
			}

			fmt.Printf("Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if info.ReleaseURL != "" {
				fmt.Println(info.ReleaseURL)
			}
			if !apply {
				fmt.Println("Run with --apply to install.")
				return
			}

			if err := service.ApplyUpdate(ctx); err != nil {
				logger.Error("Update failed", "error", err)
				os.Exit(1)
			}
			fmt.Println("Update applied, restarting.")
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "openvcam/vcamd", "GitHub repository to update from")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Allow prerelease versions")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the update instead of only checking")
	return cmd
}
