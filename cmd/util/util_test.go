package util

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}

	if WrapString("") != "" {
		t.Error("Expected empty string for empty input")
	}
}

func TestGetClientConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupRPCClientFlags(cmd)
	if err := cmd.PersistentFlags().Set("endpoints", "http://a:2379, http://b:2379,"); err != nil {
		t.Fatalf("Setting flag failed: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("Binding flags failed: %v", err)
	}

	config := GetClientConfig()

	if len(config.Endpoints) != 2 || config.Endpoints[0] != "http://a:2379" || config.Endpoints[1] != "http://b:2379" {
		t.Errorf("Unexpected endpoints: %v", config.Endpoints)
	}
	if config.BatchSize != 1000 {
		t.Errorf("Expected default batch size 1000, got %d", config.BatchSize)
	}
	if config.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %s", config.LogLevel)
	}
}
