package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/phpnexus/cwh/internal/config"
	"github.com/spf13/cobra"
)

var smokeTestCmd = &cobra.Command{
	Use:   "smoke-test",
	Short: "Test CloudWatch Logs connectivity",
	Long:  "Verify AWS credentials and whether the destination group and stream exist, then exit. Performs no writes.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		applyFlagOverrides(cfg, cmd)

		performSmokeTest(cfg)
	},
}

// performSmokeTest checks credentials and resource existence without
// writing anything.
func performSmokeTest(cfg *config.Config) {
	fmt.Printf("🔍 Testing CloudWatch Logs connectivity...\n")
	fmt.Printf("Group: %s\n", cfg.LogGroup)
	fmt.Printf("Stream: %s\n", cfg.LogStream)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cw, err := newCloudWatchSink(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		fmt.Printf("Please verify your AWS credentials and region\n")
		os.Exit(1)
	}

	groups, err := cw.DescribeGroups(ctx, cfg.LogGroup)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		fmt.Printf("Please verify your AWS credentials and region\n")
		os.Exit(1)
	}

	groupExists := false
	for _, name := range groups {
		if name == cfg.LogGroup {
			groupExists = true
		}
	}

	if !groupExists {
		if cfg.ShouldCreateGroup() {
			fmt.Printf("✅ Success: CloudWatch Logs is reachable; group %q will be created on first flush\n", cfg.LogGroup)
			return
		}
		fmt.Printf("❌ Error: log group %q does not exist and create_group is disabled\n", cfg.LogGroup)
		os.Exit(1)
	}

	streams, err := cw.DescribeStreams(ctx, cfg.LogGroup, cfg.LogStream)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}

	streamExists := false
	for _, s := range streams {
		if s.Name == cfg.LogStream {
			streamExists = true
		}
	}

	if !streamExists {
		if cfg.ShouldCreateStream() {
			fmt.Printf("✅ Success: group exists; stream %q will be created on first flush\n", cfg.LogStream)
			return
		}
		fmt.Printf("❌ Error: log stream %q does not exist and create_stream is disabled\n", cfg.LogStream)
		os.Exit(1)
	}

	fmt.Printf("✅ Success: group and stream exist and are reachable\n")
}
