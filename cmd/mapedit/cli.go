package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/random-geek/MapEdit/pkg/elog"
)

var log elog.View

var (
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagFile       string
	flagNoWarnings bool
)

func commandInit() {

	// setup logging across all commands
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "", "path to primary map file")
	rootCmd.PersistentFlags().BoolVar(&flagNoWarnings, "no-warnings", false, "skip warnings and confirmation prompts")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "enable json output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {

		logger := &elog.CLI{}

		if flagJSON {
			logger.DisableTTY = true
			logrus.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logrus.SetFormatter(logger)
		}

		logrus.SetLevel(logrus.TraceLevel)

		if flagDebug {
			logger.IsDebug = true
			logger.IsVerbose = true
		} else if flagVerbose {
			logger.IsVerbose = true
		}

		log = logger
		return nil
	}

	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(overlayCmd)
	rootCmd.AddCommand(deleteBlocksCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(replaceNodesCmd)
	rootCmd.AddCommand(setParam2Cmd)
	rootCmd.AddCommand(deleteMetaCmd)
	rootCmd.AddCommand(setMetaVarCmd)
	rootCmd.AddCommand(replaceInInvCmd)
	rootCmd.AddCommand(deleteTimersCmd)
	rootCmd.AddCommand(deleteObjectsCmd)
	rootCmd.AddCommand(vacuumCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "mapedit",
	Short: "Edit map database files in bulk",
	Long: `mapedit is an offline bulk editor for map database files. It can clone and
overlay regions, replace nodes, and mutate per-node metadata, timers, and
static objects across an entire world.

Always exit the game and back up the map database before editing it.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "View CLI version information",
	Long:  "View CLI version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("version: %s\ncommit: %s\nreleased: %s\n", release, commit, date)
	},
}
