package util

import (
	"strings"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupTCPFlags adds the TCP tuning flags shared by serve and connect
func SetupTCPFlags(cmd *cobra.Command) {
	key := "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY on the connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval of the connection (in seconds, 0 disables keepalive)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time of the connection (in seconds, negative keeps the system default)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket receive buffer (in KB, 0 keeps the system default)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket send buffer (in KB, 0 keeps the system default)"))
}

// InitConfig initializes configuration from env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dsock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetTCPConf reads the TCP tuning from viper
func GetTCPConf() common.TCPConf {
	return common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
	}
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Port:              viper.GetInt("port"),
		MaxConnections:    viper.GetInt("max-connections"),
		TimeoutSecond:     viper.GetInt("timeout"),
		HostTimeoutSecond: viper.GetInt("host-timeout"),
		TCP:               GetTCPConf(),
		MetricsEndpoint:   viper.GetString("metrics-endpoint"),
		LogLevel:          viper.GetString("log-level"),
	}
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Host:              viper.GetString("host"),
		Port:              viper.GetInt("port"),
		TimeoutSecond:     viper.GetInt("timeout"),
		DialTimeoutSecond: viper.GetInt("dial-timeout"),
		CoalesceWindow:    time.Duration(viper.GetInt("coalesce-window")) * time.Millisecond,
		TCP:               GetTCPConf(),
		LogLevel:          viper.GetString("log-level"),
	}
}
