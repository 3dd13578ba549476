package db

import (
	"fmt"

	"github.com/ValentinKolb/propdb/cmd/util"
	"github.com/ValentinKolb/propdb/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	registry *client.RPCRegistry

	// DatabaseCommands represents the db command group
	DatabaseCommands = &cobra.Command{
		Use:               "db",
		Short:             "Perform database and registry operations on a propdb server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitEnv)

	// Add common RPC flags to the db command
	util.SetupRPCClientFlags(DatabaseCommands)

	DatabaseCommands.PersistentFlags().String("db", "", util.WrapString("Name of the database to operate on (required for all database operations)"))

	// Add subcommands
	DatabaseCommands.AddCommand(getCmd)
	DatabaseCommands.AddCommand(setCmd)
	DatabaseCommands.AddCommand(delCmd)
	DatabaseCommands.AddCommand(hasCmd)
	DatabaseCommands.AddCommand(allCmd)
	DatabaseCommands.AddCommand(keysCmd)
	DatabaseCommands.AddCommand(valuesCmd)
	DatabaseCommands.AddCommand(sizeCmd)
	DatabaseCommands.AddCommand(clearCmd)
	DatabaseCommands.AddCommand(flushCmd)
	DatabaseCommands.AddCommand(printCmd)
	DatabaseCommands.AddCommand(evictCmd)
	DatabaseCommands.AddCommand(saveAllCmd)
	DatabaseCommands.AddCommand(listCmd)
	DatabaseCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the RPC registry client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get serializer
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	// Get transport
	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	// Create the registry client
	registry, err = client.NewRPCRegistry(
		*util.GetClientConfig(),
		t,
		s,
	)
	return err
}

// database returns the client of the database selected with --db
func database() (*client.RPCDatabase, error) {
	name := viper.GetString("db")
	if name == "" {
		return nil, fmt.Errorf("no database selected, use --db or PROPDB_DB")
	}
	return registry.Database(name), nil
}
