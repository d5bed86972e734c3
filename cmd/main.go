package main

import (
	"fmt"
	"os"

	"github.com/eglochon/hubchat/config"
	"github.com/eglochon/hubchat/pkg/identity"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
)

var log = logging.Logger("hubchat/cli")

var (
	dataDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "hubchat",
	Short: "Serverless chat between peers on the same LAN",
	Long: `hubchat finds other hubchat users on the local network over multicast,
connects to them directly and exchanges short text messages.

Without a subcommand it behaves like "hubchat run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if err := logging.SetLogLevel("*", logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
		}
		return nil
	},
	RunE: runCmd.RunE,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the registered display name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := profileStore().Load()
		if err != nil {
			return err
		}
		if name == "" {
			fmt.Println("not registered")
			return nil
		}
		fmt.Println(name)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the registered display name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := profileStore()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", store.Path())
		return nil
	},
}

func profileStore() *identity.Store {
	return identity.NewStore(identity.DefaultPath(dataDir))
}

func init() {
	config.Setup()

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DATA_DIR, "directory holding the profile")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level for every hubchat logger (debug, info, warn, error)")

	addRunFlags(rootCmd)
	addRunFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
