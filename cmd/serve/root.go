package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dSock/cmd/util"
	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/ValentinKolb/dSock/sock/server"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = common.GetLogger("cmd")

var (
	serveCmdConfig = common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a dSock server endpoint",
		Long: `Start a server endpoint on the given port. By default the server accepts one client, sends "Hello client!" and prints the first message it receives. With --echo it keeps accepting clients and answers every message.

The configuration can be set via command line flags or environment variables. The format of the environment variables is DSOCK_<flag> (e.g. DSOCK_MAX_CONNECTIONS=4)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "port"
	ServeCmd.PersistentFlags().Int(key, 3000, cmdUtil.WrapString("The port to listen on (0 lets the system pick a free port)"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 1, cmdUtil.WrapString("The number of connection slots, i.e. how many clients may be connected at the same time. Independent of the listen backlog, which is always 1"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The receive timeout of every accepted client in seconds (0 waits forever)"))

	key = "host-timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("How long to wait for a client to connect in seconds (0 waits forever)"))

	key = "echo"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Keep serving clients and send every received message back"))

	key = "broadcast"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("(Echo Mode) Send every received message to all connected clients instead of only the sender"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of an optional HTTP endpoint serving prometheus metrics (e.g. localhost:9100)"))

	cmdUtil.SetupTCPFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig = cmdUtil.GetServerConfig()
	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run binds the server endpoint and runs the demo or the echo loop
func run(_ *cobra.Command, _ []string) error {
	fmt.Println(serveCmdConfig.String())

	s := server.NewTCPServerEndpoint()
	if err := s.BindConfig(serveCmdConfig); err != nil {
		return err
	}
	defer func() {
		if err := s.Shutdown(); err != nil {
			Logger.Errorf("Error during shutdown: %v", err)
		}
		fmt.Printf("Statistics:\n%s", s.Stats())
	}()

	if serveCmdConfig.MetricsEndpoint != "" {
		go serveMetrics(serveCmdConfig.MetricsEndpoint)
	}
	watchSignals(s)

	if viper.GetBool("echo") {
		return runEcho(s, viper.GetBool("broadcast"))
	}
	return runHello(s)
}

// runHello accepts one client, greets it and prints its answer
func runHello(s *server.ServerEndpoint) error {
	index, err := s.AcceptConnection()
	if err != nil {
		return err
	}
	if _, err := s.SendString("Hello client!", index, true); err != nil {
		return err
	}
	msg, closed, err := s.ReceiveString(index)
	if err != nil {
		return err
	}
	if closed {
		fmt.Println("Client closed the connection")
		return nil
	}
	fmt.Printf("Server received %s\n", msg)
	return nil
}

// runEcho fills the free slots, then receives once from every active slot in
// turn and answers each message, until the process is stopped
func runEcho(s *server.ServerEndpoint, broadcast bool) error {
	for {
		if err := fillSlots(s); err != nil {
			return err
		}

		for _, index := range s.ActiveSlots() {
			msg, closed, err := s.Receive(index)
			if err != nil {
				if common.IsTimeout(err) {
					Logger.Debugf("Slot %d idle: %v", index, err)
					continue
				}
				Logger.Warningf("Closing slot %d after receive error: %v", index, err)
				_ = s.CloseConnection(index)
				continue
			}
			if closed {
				fmt.Printf("Client in slot %d disconnected\n", index)
				continue
			}

			if broadcast {
				err = s.Broadcast(msg, true)
			} else {
				_, err = s.Send(msg, index, true)
			}
			if err != nil {
				Logger.Warningf("Failed to answer slot %d: %v", index, err)
			}
		}
	}
}

// fillSlots accepts clients until every slot is active. While at least one
// client is connected an accept timeout ends the filling early.
func fillSlots(s *server.ServerEndpoint) error {
	for s.NumberOfClients() < s.Capacity() {
		index, err := s.AcceptConnection()
		if err != nil {
			if common.IsTimeout(err) && s.NumberOfClients() > 0 {
				return nil
			}
			if common.IsTimeout(err) {
				Logger.Debugf("No client connected yet, waiting again")
				continue
			}
			if errors.Is(err, common.ErrCapacityExceeded) {
				return nil
			}
			return err
		}
		peer, _ := s.PeerAddr(index)
		fmt.Printf("Client %s connected in slot %d\n", peer, index)
	}
	return nil
}

// watchSignals prints the statistics and exits on SIGINT or SIGTERM. The
// blocked endpoint call is not interrupted; the process exits and the kernel
// releases the sockets.
func watchSignals(s *server.ServerEndpoint) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		Logger.Infof("Received %s, exiting", sig)
		fmt.Printf("Statistics:\n%s", s.Stats())
		os.Exit(0)
	}()
}
