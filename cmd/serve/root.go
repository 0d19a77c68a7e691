package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/versedb/cmd/util"
	"github.com/ValentinKolb/versedb/lib/db"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	Logger = logger.GetLogger("cli")

	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the versedb server",
		Long:    `Start the versedb server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VERSEDB_<flag> (e.g. VERSEDB_BACKEND=pebble)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "backend"
	ServeCmd.PersistentFlags().String(key, string(db.ImplMemory), cmdUtil.WrapString(fmt.Sprintf("The backend that stores the data, one of: %s", backendNames())))

	key = "location"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Location of the backend (a file or a directory, depending on the backend)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080 for tcp and http, /tmp/versedb.sock for unix)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing a response, 0 disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("The largest accepted request (in bytes), larger requests end the session"))

	key = "pipeline-depth"
	ServeCmd.PersistentFlags().Int(key, common.DefaultPipelineDepth, cmdUtil.WrapString("How many requests a session reads ahead of processing"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, prometheus metrics are served on this address under /metrics (e.g. localhost:9090)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default, ignored for http)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default, ignored for http)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time (in seconds, only for tcp, negative keeps the OS default)"))
}

// backendNames returns the names of all backends as a comma separated list
func backendNames() string {
	names := make([]string, 0)
	for _, info := range db.Implementations() {
		names = append(names, string(info.DbType))
	}
	return strings.Join(names, ", ")
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Backend = viper.GetString("backend")
	if _, ok := db.Info(db.Implementation(serveCmdConfig.Backend)); !ok {
		return fmt.Errorf("invalid backend %q (expected one of: %s)", serveCmdConfig.Backend, backendNames())
	}
	serveCmdConfig.Location = viper.GetString("location")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")

	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:      viper.GetString("endpoint"),
		MaxFrameSize:  viper.GetInt("max-frame-size"),
		PipelineDepth: viper.GetInt("pipeline-depth"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run opens the backend and serves it until SIGINT or SIGTERM is received
func run(_ *cobra.Command, _ []string) (err error) {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	backend, err := db.Open(db.Implementation(serveCmdConfig.Backend), serveCmdConfig.Location)
	if err != nil {
		return err
	}

	// the backend is flushed and closed after all sessions are gone
	defer func() {
		if flushErr := backend.Flush(); flushErr != nil {
			Logger.Errorf("failed to flush the %s backend: %v", serveCmdConfig.Backend, flushErr)
			err = errors.Join(err, flushErr)
		}
		if closeErr := backend.Close(); closeErr != nil {
			Logger.Errorf("failed to close the %s backend: %v", serveCmdConfig.Backend, closeErr)
			err = errors.Join(err, closeErr)
		}
		Logger.Infof("%s backend closed", serveCmdConfig.Backend)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(*serveCmdConfig, backend, t, s)

	Logger.Infof("serving %s backend (%s) on %s via %s/%s",
		serveCmdConfig.Backend, serveCmdConfig.Location, serveCmdConfig.Transport.Endpoint,
		viper.GetString("transport"), viper.GetString("serializer"))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serv.Serve(gCtx)
	})
	if serveCmdConfig.MetricsEndpoint != "" {
		g.Go(func() error {
			return server.ServeMetrics(gCtx, serveCmdConfig.MetricsEndpoint)
		})
	}

	return g.Wait()
}
