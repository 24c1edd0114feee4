package connect

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ValentinKolb/dSock/cmd/util"
	"github.com/ValentinKolb/dSock/sock/client"
	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = common.GetLogger("cmd")

var (
	clientEndpoint *client.ClientEndpoint
	clientConfig   common.ClientConfig

	// ConnectCmd represents the connect command group
	ConnectCmd = &cobra.Command{
		Use:   "connect",
		Short: "Connect a dSock client endpoint to a server",
		Long: `Connect to a server, send a message and print the reply. With --echo every line read from stdin is sent and the reply printed.

The configuration can be set via command line flags or environment variables. The format of the environment variables is DSOCK_<flag> (e.g. DSOCK_HOST=example.org)`,
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: teardownClient,
		RunE:               run,
	}
)

func init() {
	ConnectCmd.AddCommand(perfTestCmd)

	key := "host"
	ConnectCmd.PersistentFlags().String(key, "localhost", util.WrapString("The host name or address of the server"))

	key = "port"
	ConnectCmd.PersistentFlags().Int(key, 3000, util.WrapString("The port of the server"))

	key = "timeout"
	ConnectCmd.PersistentFlags().Int(key, 0, util.WrapString("The receive timeout in seconds (0 waits forever)"))

	key = "dial-timeout"
	ConnectCmd.PersistentFlags().Int(key, 10, util.WrapString("How long to wait for the connection to be established in seconds"))

	key = "coalesce-window"
	ConnectCmd.PersistentFlags().Int(key, 20, util.WrapString("How long a receive waits for follow-up data after the first read (in milliseconds, 0 disables coalescing)"))

	key = "message"
	ConnectCmd.Flags().String(key, "Hello server!", util.WrapString("The message to send"))

	key = "echo"
	ConnectCmd.Flags().Bool(key, false, util.WrapString("Send every line read from stdin and print the replies"))

	util.SetupTCPFlags(ConnectCmd)
}

// setupClient reads the configuration and connects the client endpoint
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	if err := common.InitLoggers(clientConfig.LogLevel); err != nil {
		return err
	}
	Logger.Debugf("Client configuration:\n%s", clientConfig.String())

	clientEndpoint = client.NewTCPClientEndpoint()
	return clientEndpoint.ConnectConfig(clientConfig)
}

// teardownClient closes the connection unless the server already closed it
func teardownClient(_ *cobra.Command, _ []string) error {
	if clientEndpoint == nil || !clientEndpoint.IsSet() {
		return nil
	}
	return clientEndpoint.Close()
}

// run sends the message (or stdin lines in echo mode) and prints the replies
func run(_ *cobra.Command, _ []string) error {
	if !viper.GetBool("echo") {
		if _, err := clientEndpoint.SendString(viper.GetString("message"), true); err != nil {
			return err
		}
		return printReply()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := clientEndpoint.SendString(line, true); err != nil {
			return err
		}
		if err := printReply(); err != nil {
			return err
		}
		if !clientEndpoint.IsSet() {
			return nil
		}
	}
	return scanner.Err()
}

// printReply receives one reply and prints it
func printReply() error {
	receive := clientEndpoint.ReceiveCoalesced
	if clientConfig.CoalesceWindow == 0 {
		receive = clientEndpoint.Receive
	}

	msg, closed, err := receive()
	if err != nil {
		return err
	}
	if closed {
		fmt.Println("Server closed the connection")
		return nil
	}
	fmt.Printf("Client received %s\n", msg)
	return nil
}
