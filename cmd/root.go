package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hand/redislock/cmd/lock"
	"github.com/hand/redislock/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"

	checkKey   = "test"
	checkValue = "hello world"
)

var (
	printMetrics bool

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "redislock",
		Short: "distributed lock on Redis",
		Long: fmt.Sprintf(`redislock (v%s)

A distributed mutual-exclusion lock built on the atomic operations of a
key-value store (Redis), with leases, owner tokens and automatic renewal.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of redislock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("redislock v%s\n", Version)
		},
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check that the store is reachable and writable",
		Long:  `Connects to the configured store, writes the key "test" with the value "hello world" and reads it back.`,
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(checkCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
	RootCmd.PersistentFlags().BoolVar(&printMetrics, "metrics", false, util.WrapString("Print metrics in Prometheus text format to stderr on exit"))
}

// runCheck performs the connectivity smoke test
func runCheck(cmd *cobra.Command, _ []string) error {
	conf, err := util.GetConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), conf.DialTimeout+5*time.Second)
	defer cancel()

	s, err := util.NewStore(ctx, conf)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer s.Close()

	if err := s.SetE(ctx, checkKey, []byte(checkValue), 0); err != nil {
		return fmt.Errorf("failed to write %q: %w", checkKey, err)
	}

	value, ok, err := s.Get(ctx, checkKey)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", checkKey, err)
	}
	if !ok || !bytes.Equal(value, []byte(checkValue)) {
		return fmt.Errorf("read back %q=%q, expected %q", checkKey, value, checkValue)
	}

	fmt.Printf("ok: %s store, %s=%q\n", conf.Store, checkKey, value)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	err := RootCmd.Execute()
	if printMetrics {
		metrics.WritePrometheus(os.Stderr, false)
	}
	if err != nil {
		os.Exit(1)
	}
}
