package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/hand/redislock/cmd/util"
	"github.com/hand/redislock/lib/config"
	"github.com/hand/redislock/lib/lockmgr"
	"github.com/hand/redislock/lib/logging"
	"github.com/hand/redislock/lib/store"
	"github.com/spf13/cobra"
)

var (
	conf    *config.Config
	lockMgr lockmgr.ILockManager
	kvStore store.IStore
	logger  = logging.CreateLogger("cli")

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations",
		PersistentPreRunE:  setupLockManager,
		PersistentPostRunE: closeStore,
	}

	// runCmd represents the run command
	runCmd = &cobra.Command{
		Use:   "run [name] -- [command] [args...]",
		Short: "Run a command while holding a lock",
		Long: `Acquires the lock, runs the command and releases the lock when the command exits.
The lock is renewed in the background. If it is lost, the command is killed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runWithLock,
	}

	// statusCmd represents the status command
	statusCmd = &cobra.Command{
		Use:   "status [name]",
		Short: "Show whether a lock is held and by which owner token",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
)

func init() {
	// Add subcommands to lock command
	LockCommands.AddCommand(runCmd)
	LockCommands.AddCommand(statusCmd)

	// Add lock flags
	util.SetupLockFlags(LockCommands)
}

// setupLockManager creates the store and the lock manager
func setupLockManager(cmd *cobra.Command, _ []string) (err error) {
	conf, err = util.GetConfig(cmd)
	if err != nil {
		return err
	}

	kvStore, err = util.NewStore(cmd.Context(), conf)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	lockMgr = util.NewLockManager(conf, kvStore)
	return nil
}

func closeStore(_ *cobra.Command, _ []string) error {
	if kvStore == nil {
		return nil
	}
	err := kvStore.Close()
	kvStore = nil
	return err
}

// runWithLock handles the run command
func runWithLock(cmd *cobra.Command, args []string) error {
	defer func() { _ = closeStore(cmd, args) }()

	name := args[0]
	command := args[1:]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := lockMgr.WithLock(ctx, name, conf.Lease, util.WaitPolicy(conf), func(lockCtx context.Context) error {
		logger.Infof("lock %q acquired, running %v", name, command)

		child := exec.CommandContext(lockCtx, command[0], command[1:]...)
		child.Stdin = os.Stdin
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr

		return child.Run()
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, lockmgr.ErrContended), errors.Is(err, lockmgr.ErrTimeout):
		return fmt.Errorf("lock %q is held by another owner: %w", name, err)
	case errors.Is(err, lockmgr.ErrOwnershipLost):
		logger.Errorf("lock %q was lost while the command was running", name)
		return err
	default:
		return err
	}
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	name := args[0]

	token, ok, err := kvStore.Get(cmd.Context(), conf.KeyPrefix+name)
	if err != nil {
		return fmt.Errorf("failed to read lock %q: %w", name, err)
	}

	if !ok {
		fmt.Printf("held=false\n")
		return nil
	}
	fmt.Printf("held=true, owner=%s\n", token)
	return nil
}
