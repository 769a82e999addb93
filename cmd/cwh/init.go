package main

func init() {
	// Add subcommands
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(smokeTestCmd)

	// Root command flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "", "Path to configuration file (required)")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&groupName, "group", "", "Destination log group (overrides config)")
	rootCmd.PersistentFlags().StringVar(&streamName, "stream", "", "Destination log stream (overrides config)")
	rootCmd.PersistentFlags().StringVar(&awsRegion, "region", "", "AWS region (overrides config)")
	rootCmd.PersistentFlags().StringVar(&awsProfile, "profile", "", "AWS shared config profile (overrides config)")
	rootCmd.PersistentFlags().StringVar(&awsEndpoint, "endpoint", "", "CloudWatch Logs endpoint override (overrides config)")

	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (overrides config)")
	rootCmd.Flags().StringVar(&followPath, "follow", "", "Follow a growing file instead of reading stdin")
}
