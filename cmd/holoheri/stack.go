package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// stackOptions are shared by the docker compose commands.
type stackOptions struct {
	composeFile string
	profiles    []string
}

// compose runs `docker compose` with the configured file and profiles.
func (o *stackOptions) compose(ctx context.Context, args ...string) error {
	composeArgs := []string{"compose", "-f", o.composeFile}
	for _, p := range o.profiles {
		composeArgs = append(composeArgs, "--profile", p)
	}
	composeArgs = append(composeArgs, args...)
	return runCommand(ctx, "docker", composeArgs...)
}

func newStackCmd() *cobra.Command {
	opts := &stackOptions{}
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Manage the local docker compose stack (postgres, redis, minio, server, worker)",
	}
	cmd.PersistentFlags().StringVarP(&opts.composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.PersistentFlags().StringSliceVar(&opts.profiles, "profile", nil, "Compose profiles to enable (e.g. mirror)")
	cmd.AddCommand(
		newBuildCmd(opts),
		newUpCmd(opts),
		newDownCmd(opts),
		newLogsCmd(opts),
	)
	return cmd
}

func newBuildCmd(opts *stackOptions) *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "build [service...]",
		Short: "Build Docker images via docker compose",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"build"}
			if noCache {
				composeArgs = append(composeArgs, "--no-cache")
			}
			return opts.compose(cmd.Context(), append(composeArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable Docker build cache")
	return cmd
}

func newUpCmd(opts *stackOptions) *cobra.Command {
	var detach, skipBuild bool
	cmd := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"up"}
			if !skipBuild {
				composeArgs = append(composeArgs, "--build")
			}
			if detach {
				composeArgs = append(composeArgs, "-d")
			}
			return opts.compose(cmd.Context(), append(composeArgs, args...)...)
		},
	}
	cmd.Flags().BoolVarP(&detach, "detached", "d", true, "Run docker compose in detached mode")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Skip rebuilding images before starting")
	return cmd
}

func newDownCmd(opts *stackOptions) *cobra.Command {
	var removeVolumes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"down"}
			if removeVolumes {
				composeArgs = append(composeArgs, "-v")
			}
			return opts.compose(cmd.Context(), composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&removeVolumes, "volumes", "v", false, "Remove stack volumes (database, uploads, bucket)")
	return cmd
}

func newLogsCmd(opts *stackOptions) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Tail logs from stack services",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"logs"}
			if follow {
				composeArgs = append(composeArgs, "-f")
			}
			return opts.compose(cmd.Context(), append(composeArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "Stream logs continuously")
	return cmd
}

func newTestCmd() *cobra.Command {
	var race, cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := args
			if len(pkgs) == 0 {
				pkgs = []string{"./..."}
			}
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			return runCommand(cmd.Context(), "go", append(goArgs, pkgs...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the server or worker binary directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"run", path}, args...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
