package main

import "testing"

func TestDisplayConfigPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "explicit path", path: "/etc/lineupd/config.yaml", want: "/etc/lineupd/config.yaml"},
		{name: "no path falls back to defaults note", path: "", want: "(defaults + environment)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayConfigPath(tt.path); got != tt.want {
				t.Errorf("displayConfigPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"serve", "healthcheck", "config", "version", "db"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Errorf("rootCmd.Find(%q) failed: %v", name, err)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("rootCmd.Find(%q) resolved to %q", name, cmd.Name())
		}
	}
}

func TestConfigCommandRegistersSubcommands(t *testing.T) {
	want := []string{"validate", "dump"}
	for _, name := range want {
		cmd, _, err := configCmd.Find([]string{name})
		if err != nil {
			t.Errorf("configCmd.Find(%q) failed: %v", name, err)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("configCmd.Find(%q) resolved to %q", name, cmd.Name())
		}
	}
}
