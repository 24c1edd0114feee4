package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dSock/cmd/connect"
	"github.com/ValentinKolb/dSock/cmd/serve"
	"github.com/ValentinKolb/dSock/cmd/util"
	"github.com/ValentinKolb/dSock/sock/resolver"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dsock",
		Short: "minimal TCP request/response endpoints",
		Long: fmt.Sprintf(`dSock (v%s)

A small socket library written in Go: a server endpoint holding a fixed
number of client connections and a client endpoint, exchanging raw byte
messages over TCP.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dSock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dSock v%s\n", Version)
		},
	}

	// hostnameCmd prints the name the local machine reports for itself
	hostnameCmd = &cobra.Command{
		Use:   "hostname",
		Short: "Print the host name of this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolver.HostName()
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
)

func init() {
	// initialize viper once for every command
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(hostnameCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
