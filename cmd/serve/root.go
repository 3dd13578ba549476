package serve

import (
	"context"
	"fmt"
	"time"

	cmdUtil "github.com/ValentinKolb/propdb/cmd/util"
	"github.com/ValentinKolb/propdb/lib/db"
	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/lib/store/lstore"
	"github.com/ValentinKolb/propdb/lib/store/sqlstore"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// shutdownTimeout bounds how long running requests may take after a shutdown signal
const shutdownTimeout = 10 * time.Second

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the propdb server",
		Long:    `Start the propdb server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is PROPDB_<flag> (e.g. PROPDB_IDLE_THRESHOLD=600)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnv)

	defaults := db.DefaultCleanerConfig()

	// add flags
	key := "storage"
	ServeCmd.PersistentFlags().String(key, string(common.StorageSQLite), cmdUtil.WrapString("Property store backend: sqlite (durable, stored at --data-path) or memory (lost on exit)"))

	key = "data-path"
	ServeCmd.PersistentFlags().String(key, "propdb.sqlite", cmdUtil.WrapString("Path of the SQLite database file (only for --storage=sqlite)"))

	key = "max-value-bytes"
	ServeCmd.PersistentFlags().Int(key, lstore.DefaultMaxValueBytes, cmdUtil.WrapString("Maximum size of a single persisted database in bytes, 0 = unbounded (only for --storage=memory)"))

	key = "max-total-bytes"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum size of all persisted databases in bytes, 0 = unbounded (only for --storage=memory)"))

	key = "cleaner"
	ServeCmd.PersistentFlags().Bool(key, defaults.Enabled, cmdUtil.WrapString("Evict databases that have not been accessed for --idle-threshold seconds"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Float64(key, defaults.SweepIntervalSeconds, cmdUtil.WrapString("Seconds between two sweeps of the cache cleaner"))

	key = "idle-threshold"
	ServeCmd.PersistentFlags().Float64(key, defaults.IdleThresholdSeconds, cmdUtil.WrapString("Seconds without access after which a database is evicted"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, or a socket path for --transport=unix)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Read and write deadline of a connection in seconds, 0 = none (ignored for http)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Requests of one connection processed concurrently (ignored for http)"))

	cmdUtil.SetupSocketFlags(ServeCmd)

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Storage = common.StorageType(viper.GetString("storage"))
	serveCmdConfig.DataPath = viper.GetString("data-path")
	serveCmdConfig.MaxValueBytes = viper.GetInt("max-value-bytes")
	serveCmdConfig.MaxTotalBytes = viper.GetInt("max-total-bytes")
	serveCmdConfig.Cleaner = db.CleanerConfig{
		Enabled:              viper.GetBool("cleaner"),
		SweepIntervalSeconds: viper.GetFloat64("sweep-interval"),
		IdleThresholdSeconds: viper.GetFloat64("idle-threshold"),
	}
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.Socket = cmdUtil.GetSocketConfig()
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	transportType, err := cmdUtil.GetTransportType()
	if err != nil {
		return err
	}
	serveCmdConfig.Transport = transportType

	return serveCmdConfig.Validate()
}

// openStore opens the property store selected by config
func openStore(config *common.ServerConfig) (store.IPropertyStore, error) {
	switch config.Storage {
	case common.StorageSQLite:
		return sqlstore.Open(config.DataPath)
	case common.StorageMemory:
		return lstore.NewLocalStore(&lstore.StoreOptions{
			MaxValueBytes: config.MaxValueBytes,
			MaxTotalBytes: config.MaxTotalBytes,
		}), nil
	default:
		return nil, fmt.Errorf("invalid storage %s", config.Storage)
	}
}

// run starts the propdb server and blocks until SIGINT/SIGTERM.
// On shutdown the HTTP server is drained first, then every live database is saved.
func run(cmd *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	st, err := openStore(serveCmdConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			server.Logger.Errorf("closing property store failed: %v", err)
		}
	}()

	scheduler := host.NewSystemScheduler()

	// registered before the manager, so requests are drained before the final save
	var serv *server.RPCServer
	scheduler.OnBeforeShutdown(func() {
		if serv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := serv.Shutdown(ctx); err != nil {
			server.Logger.Errorf("stopping transport failed: %v", err)
		}
	})

	manager, err := db.NewDatabaseManager(st, scheduler, &db.ManagerOptions{
		Cleaner: &serveCmdConfig.Cleaner,
	})
	if err != nil {
		return err
	}

	serv = server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
		manager,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		scheduler.WaitForSignal(ctx)
	}()

	serveErr := serv.Serve()

	// the listener failed on its own, save and exit
	cancel()
	<-stopped

	return serveErr
}
