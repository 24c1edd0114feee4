package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// BufferSize is the capacity of the transfer buffer of every connection.
	// A single read never returns more than this many bytes.
	BufferSize = 65535

	// ListenBacklog is the number of connections the kernel may queue before
	// they are accepted. It is independent of the number of connection slots.
	ListenBacklog = 1

	// DefaultCoalesceWindow is how long a coalescing receive waits for
	// follow-up data after the first read
	DefaultCoalesceWindow = 20 * time.Millisecond

	// DefaultResolveTimeout bounds a single address lookup
	DefaultResolveTimeout = 5 * time.Second
)

// --------------------------------------------------------------------------
// TCP tuning
// --------------------------------------------------------------------------

// TCPConf holds the TCP options applied to every accepted or dialled connection
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive probes with this period (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER (negative = leave the system default)
	TCPLingerSec int
	// ReadBufferSize sets SO_RCVBUF in bytes (0 = system default)
	ReadBufferSize int
	// WriteBufferSize sets SO_SNDBUF in bytes (0 = system default)
	WriteBufferSize int
}

// DefaultTCPConf returns a configuration that leaves every socket option at the system default
func DefaultTCPConf() TCPConf {
	return TCPConf{
		TCPNoDelay:   true,
		TCPLingerSec: -1,
	}
}

func (c *TCPConf) addFields(addField func(name, value string)) {
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	addField("TCP Keep Alive", secondsOrOff(c.TCPKeepAliveSec))
	if c.TCPLingerSec < 0 {
		addField("TCP Linger", "system default")
	} else {
		addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	}
	addField("Read Buffer", bytesOrDefault(c.ReadBufferSize))
	addField("Write Buffer", bytesOrDefault(c.WriteBufferSize))
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds everything a server endpoint needs to bind
type ServerConfig struct {
	// Port to listen on (0 lets the system pick one)
	Port int
	// MaxConnections is the number of connection slots
	MaxConnections int

	// TimeoutSecond is the receive timeout applied to slots via SetTimeout (0 = none)
	TimeoutSecond int
	// HostTimeoutSecond is the accept timeout applied via SetHostTimeout (0 = none)
	HostTimeoutSecond int

	// TCP options for accepted connections
	TCP TCPConf

	// MetricsEndpoint is the address of the optional prometheus endpoint (empty = off)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a configuration for the given port and number of slots
func DefaultServerConfig(port, maxConnections int) ServerConfig {
	return ServerConfig{
		Port:           port,
		MaxConnections: maxConnections,
		TCP:            DefaultTCPConf(),
		LogLevel:       "info",
	}
}

// Validate checks that the configuration can be used to bind a server endpoint
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0 and 65535", c.Port)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections %d: must be at least 1", c.MaxConnections)
	}
	if c.TimeoutSecond < 0 || c.HostTimeoutSecond < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server Endpoint")
	addField("Port", strconv.Itoa(c.Port))
	addField("Max Connections", strconv.Itoa(c.MaxConnections))
	addField("Listen Backlog", strconv.Itoa(ListenBacklog))
	addField("Receive Timeout", secondsOrOff(c.TimeoutSecond))
	addField("Accept Timeout", secondsOrOff(c.HostTimeoutSecond))

	addSection("TCP")
	c.TCP.addFields(addField)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds everything a client endpoint needs to connect
type ClientConfig struct {
	Host string
	Port int

	// TimeoutSecond is the receive timeout applied after connecting (0 = none)
	TimeoutSecond int
	// DialTimeoutSecond bounds the connect call (0 = system default)
	DialTimeoutSecond int
	// CoalesceWindow is the poll window of ReceiveCoalesced
	CoalesceWindow time.Duration

	TCP TCPConf

	LogLevel string
}

// DefaultClientConfig returns a configuration for the given remote address
func DefaultClientConfig(host string, port int) ClientConfig {
	return ClientConfig{
		Host:           host,
		Port:           port,
		CoalesceWindow: DefaultCoalesceWindow,
		TCP:            DefaultTCPConf(),
		LogLevel:       "info",
	}
}

// Validate checks that the configuration can be used to connect a client endpoint
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("no host provided")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.CoalesceWindow < 0 {
		return fmt.Errorf("coalesce window must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Endpoint")
	addField("Host", c.Host)
	addField("Port", strconv.Itoa(c.Port))
	addField("Receive Timeout", secondsOrOff(c.TimeoutSecond))
	addField("Dial Timeout", secondsOrOff(c.DialTimeoutSecond))
	addField("Coalesce Window", c.CoalesceWindow.String())

	addSection("TCP")
	c.TCP.addFields(addField)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// TimeoutDuration converts the seconds/milliseconds pair used by the endpoint
// API into a duration. Zero means no timeout.
func TimeoutDuration(seconds, milliseconds uint) time.Duration {
	return time.Duration(seconds)*time.Second + time.Duration(milliseconds)*time.Millisecond
}

func secondsOrOff(sec int) string {
	if sec <= 0 {
		return "off"
	}
	return fmt.Sprintf("%d sec", sec)
}

func bytesOrDefault(size int) string {
	if size <= 0 {
		return "system default"
	}
	return fmt.Sprintf("%d KB", size/1024)
}
