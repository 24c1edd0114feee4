package util

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// TestWrapString tests that no wrapped line exceeds Wrap characters and no word is lost
func TestWrapString(t *testing.T) {
	text := "The number of connection slots, i.e. how many clients may be connected at the same time"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if strings.Join(strings.Fields(wrapped), " ") != text {
		t.Errorf("words changed by wrapping: %q", wrapped)
	}
	if WrapString("") != "" {
		t.Error("empty text should stay empty")
	}
}

// TestGetConfigFromFlags tests that flag values end up in the endpoint configurations
func TestGetConfigFromFlags(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupTCPFlags(cmd)
	cmd.PersistentFlags().Int("port", 3000, "")
	cmd.PersistentFlags().Int("max-connections", 1, "")
	cmd.PersistentFlags().String("host", "localhost", "")
	cmd.PersistentFlags().Int("coalesce-window", 20, "")

	if err := cmd.PersistentFlags().Parse([]string{
		"--port=4000", "--max-connections=3", "--tcp-nodelay=false", "--read-buffer=8", "--coalesce-window=50",
	}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("BindPFlags failed: %v", err)
	}

	server := GetServerConfig()
	if server.Port != 4000 || server.MaxConnections != 3 {
		t.Errorf("unexpected server config: %+v", server)
	}
	if server.TCP.TCPNoDelay || server.TCP.ReadBufferSize != 8*1024 || server.TCP.TCPLingerSec != -1 {
		t.Errorf("unexpected tcp config: %+v", server.TCP)
	}

	client := GetClientConfig()
	if client.Host != "localhost" || client.Port != 4000 {
		t.Errorf("unexpected client address %s:%d", client.Host, client.Port)
	}
	if client.CoalesceWindow != 50*time.Millisecond {
		t.Errorf("expected coalesce window 50ms, got %v", client.CoalesceWindow)
	}
}
