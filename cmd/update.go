package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cramdeck/cramdeck/internal/appupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check whether a newer cramdeck release exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := appupdate.NewChecker(appupdate.WithLogger(stderrLogger()))

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		res, err := checker.Check(ctx, &appupdate.CheckInput{Version: version})
		if errors.Is(err, appupdate.ErrDevBuild) {
			fmt.Println("Cannot check a development build. Install a release build first.")
			return nil
		}
		if err != nil {
			return err
		}

		if !res.UpdateAvailable {
			fmt.Println("Already running the latest version.")
			return nil
		}

		fmt.Printf("Update available: %s -> %s\n", res.CurrentVersion, res.LatestVersion)
		if res.ReleaseURL != "" {
			fmt.Println("Release notes:", res.ReleaseURL)
		}
		return nil
	},
}
