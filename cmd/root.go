package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/propdb/cmd/db"
	"github.com/ValentinKolb/propdb/cmd/serve"
	"github.com/ValentinKolb/propdb/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "propdb",
		Short: "named key-value databases persisted as properties",
		Long: fmt.Sprintf(`propdb (v%s)

A registry of named, ordered key-value databases. Every database is kept in
memory while it is used and persisted as a single JSON document in a property
store. Idle databases are evicted, all databases are saved on shutdown.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of propdb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("propdb v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(db.DatabaseCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary), server and client must agree"))

	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix), server and client must agree"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
