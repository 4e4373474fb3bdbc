package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// repository is the GitHub slug releases are published under
const repository = "s0up4200/fetchr"

var (
	appVersion = "dev"
	buildTime  = "unknown"
)

// errDevBuild is returned when a build without a release version tries to update
var errDevBuild = errors.New("development builds cannot be updated; install a release instead")

// SetVersion records the version information injected at build time
func SetVersion(version, built string) {
	appVersion = version
	buildTime = built
	rootCmd.Version = version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fetchr %s\n", appVersion)
		fmt.Fprintf(out, "Built: %s\n", buildTime)
		fmt.Fprintf(out, "Go:    %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

		if _, err := parseVersion(appVersion); err != nil {
			fmt.Fprintln(out, "(development build)")
		}
		return nil
	},
}

var checkOnly bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update fetchr to the latest release",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only check whether an update is available")
}

// parseVersion accepts versions with or without a leading "v"
func parseVersion(version string) (semver.Version, error) {
	return semver.ParseTolerant(strings.TrimSpace(version))
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	current, err := parseVersion(appVersion)
	if err != nil {
		return errDevBuild
	}

	latest, found, err := detectLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		fmt.Fprintf(out, "No release found for %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	}

	if latest.LessOrEqual(current.String()) {
		fmt.Fprintf(out, "fetchr %s is up to date\n", current)
		return nil
	}

	if checkOnly {
		fmt.Fprintf(out, "Update available: %s -> %s\n", current, latest.Version())
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("permission denied replacing %s; retry with elevated privileges: %w", exe, err)
		}
		return fmt.Errorf("failed to update: %w", err)
	}

	fmt.Fprintf(out, "Updated fetchr %s -> %s\n", current, latest.Version())
	return nil
}

func detectLatest(ctx context.Context) (*selfupdate.Release, bool, error) {
	return selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repository))
}
