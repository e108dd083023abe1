// Copyright (c) 2016-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/sampleconfig"
)

// withArgs replaces the command line arguments parsed by loadConfig with the
// passed arguments for the duration of the test.  The home directory is always
// set to a temporary directory and file logging is disabled so there are no
// external influences from previously created config files.
func withArgs(t *testing.T, args ...string) string {
	t.Helper()

	homeDir := t.TempDir()
	old := os.Args
	os.Args = append([]string{"ledgerd", "-A", homeDir, "--nofilelogging"},
		args...)
	t.Cleanup(func() { os.Args = old })
	return homeDir
}

// TestLoadConfigDefaults ensures loading the config with no options results in
// the default settings and a sample config file being created.
func TestLoadConfigDefaults(t *testing.T) {
	homeDir := withArgs(t)
	cfg, remaining, err := loadConfig("ledgerd")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("unexpected remaining args: %v", remaining)
	}

	if cfg.Listen != defaultListen {
		t.Errorf("unexpected listen address: got %q, want %q", cfg.Listen,
			defaultListen)
	}
	if !reflect.DeepEqual(cfg.RPCListeners, []string{defaultRPCListen}) {
		t.Errorf("unexpected rpc listeners: %v", cfg.RPCListeners)
	}
	if len(cfg.peerAddrs) != 0 {
		t.Errorf("unexpected startup peers: %v", cfg.peerAddrs)
	}
	if cfg.DialTimeout != defaultDialTimeout {
		t.Errorf("unexpected dial timeout: %v", cfg.DialTimeout)
	}
	if cfg.WriteTimeout != defaultWriteTimeout {
		t.Errorf("unexpected write timeout: %v", cfg.WriteTimeout)
	}
	if cfg.MaxFrameSize != defaultMaxFrameSize {
		t.Errorf("unexpected max frame size: %v", cfg.MaxFrameSize)
	}
	if cfg.GenesisData != defaultGenesisData {
		t.Errorf("unexpected genesis data: %q", cfg.GenesisData)
	}

	// A default node must share its genesis block with a ledger created
	// without any genesis configuration.
	genesis := ledger.Genesis(cfg.GenesisData)
	if want := ledger.New(&ledger.Config{}).GenesisBlock(); *genesis != *want {
		t.Errorf("default genesis block mismatch\ngot: %s\nwant: %s",
			spew.Sdump(genesis), spew.Sdump(want))
	}

	// The sample config must have been written to the home directory.
	configFile := filepath.Join(homeDir, defaultConfigFilename)
	if cfg.ConfigFile != configFile {
		t.Errorf("unexpected config file: got %q, want %q", cfg.ConfigFile,
			configFile)
	}
	contents, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read created config file: %v", err)
	}
	if string(contents) != sampleconfig.Ledgerd() {
		t.Errorf("created config file does not match the sample config")
	}
}

// TestLoadConfigEnv ensures the LEDGERD_* environment variables replace the
// defaults of their options.
func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LEDGERD_LISTEN", ":7001")
	t.Setenv("LEDGERD_RPCLISTEN", "127.0.0.1:4001,127.0.0.1:4002")
	t.Setenv("LEDGERD_PEERS", "ws://10.0.0.1:6001,ws://10.0.0.2:6002")
	withArgs(t)

	cfg, _, err := loadConfig("ledgerd")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Listen != ":7001" {
		t.Errorf("unexpected listen address: %q", cfg.Listen)
	}
	wantRPC := []string{"127.0.0.1:4001", "127.0.0.1:4002"}
	if !reflect.DeepEqual(cfg.RPCListeners, wantRPC) {
		t.Errorf("unexpected rpc listeners: got %v, want %v",
			cfg.RPCListeners, wantRPC)
	}
	wantPeers := []peer.Addr{
		{Host: "10.0.0.1", Port: 6001},
		{Host: "10.0.0.2", Port: 6002},
	}
	if !reflect.DeepEqual(cfg.peerAddrs, wantPeers) {
		t.Errorf("unexpected peers:\ngot: %s\nwant: %s",
			spew.Sdump(cfg.peerAddrs), spew.Sdump(wantPeers))
	}
}

// TestLoadConfigArgs ensures command line options take precedence over the
// environment.
func TestLoadConfigArgs(t *testing.T) {
	t.Setenv("LEDGERD_LISTEN", ":7001")
	withArgs(t, "--listen=127.0.0.1:8001", "--peer=ws://peer.example:6001/p2p",
		"--peer=ws://[::1]:6002", "--norpc", "--dialtimeout=5s",
		"--genesisdata=testnet")

	cfg, _, err := loadConfig("ledgerd")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8001" {
		t.Errorf("unexpected listen address: %q", cfg.Listen)
	}
	if !cfg.DisableRPC || len(cfg.RPCListeners) != 0 {
		t.Errorf("rpc not disabled: %v %v", cfg.DisableRPC, cfg.RPCListeners)
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Errorf("unexpected dial timeout: %v", cfg.DialTimeout)
	}
	if cfg.GenesisData != "testnet" {
		t.Errorf("unexpected genesis data: %q", cfg.GenesisData)
	}
	wantPeers := []peer.Addr{
		{Host: "peer.example", Port: 6001, Path: "/p2p"},
		{Host: "::1", Port: 6002},
	}
	if !reflect.DeepEqual(cfg.peerAddrs, wantPeers) {
		t.Errorf("unexpected peers:\ngot: %s\nwant: %s",
			spew.Sdump(cfg.peerAddrs), spew.Sdump(wantPeers))
	}
}

// TestLoadConfigFile ensures options are read from an existing config file and
// that it is not replaced by the sample config.
func TestLoadConfigFile(t *testing.T) {
	homeDir := withArgs(t)
	configFile := filepath.Join(homeDir, defaultConfigFilename)
	const contents = "[Application Options]\n" +
		"peer=ws://10.0.0.3:6003\n" +
		"rpclisten=127.0.0.1\n" +
		"maxframesize=1024\n"
	if err := os.WriteFile(configFile, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, _, err := loadConfig("ledgerd")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	wantPeers := []peer.Addr{{Host: "10.0.0.3", Port: 6003}}
	if !reflect.DeepEqual(cfg.peerAddrs, wantPeers) {
		t.Errorf("unexpected peers:\ngot: %s\nwant: %s",
			spew.Sdump(cfg.peerAddrs), spew.Sdump(wantPeers))
	}
	if !reflect.DeepEqual(cfg.RPCListeners, []string{"127.0.0.1:3001"}) {
		t.Errorf("unexpected rpc listeners: %v", cfg.RPCListeners)
	}
	if cfg.MaxFrameSize != 1024 {
		t.Errorf("unexpected max frame size: %v", cfg.MaxFrameSize)
	}

	got, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if string(got) != contents {
		t.Errorf("existing config file was modified")
	}
}

// TestLoadConfigErrors ensures invalid options are rejected.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{{
		name: "peer with wrong scheme",
		args: []string{"--peer=http://10.0.0.1:6001"},
	}, {
		name: "peer without port",
		args: []string{"--peer=ws://10.0.0.1"},
	}, {
		name: "invalid debug level",
		args: []string{"--debuglevel=bogus"},
	}, {
		name: "invalid debug subsystem",
		args: []string{"--debuglevel=BOGUS=info"},
	}, {
		name: "proxy user without proxy",
		args: []string{"--proxyuser=user"},
	}, {
		name: "zero dial timeout",
		args: []string{"--dialtimeout=0s"},
	}, {
		name: "negative write timeout",
		args: []string{"--writetimeout=-1s"},
	}, {
		name: "zero max frame size",
		args: []string{"--maxframesize=0"},
	}, {
		name: "unknown option",
		args: []string{"--bogus"},
	}, {
		name: "positional argument",
		args: []string{"extra"},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			withArgs(t, test.args...)
			if _, _, err := loadConfig("ledgerd"); err == nil {
				t.Fatal("did not receive expected error")
			}
		})
	}

	// Restore the log levels changed by the tests above.
	setLogLevels(defaultLogLevel)
}

// TestParseAndSetDebugLevels ensures debug level strings are validated and
// applied per subsystem.
func TestParseAndSetDebugLevels(t *testing.T) {
	defer setLogLevels(defaultLogLevel)

	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "global level", level: "debug"},
		{name: "single subsystem", level: "SYNC=trace"},
		{name: "multiple subsystems", level: "SYNC=trace,PEER=warn"},
		{name: "invalid global", level: "loud", wantErr: true},
		{name: "missing pair", level: "SYNC=trace,PEER", wantErr: true},
		{name: "invalid subsystem", level: "NOPE=info", wantErr: true},
		{name: "invalid pair level", level: "SYNC=loud", wantErr: true},
	}

	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if (err != nil) != test.wantErr {
			t.Errorf("%q: unexpected error result: got %v, want error %v",
				test.name, err, test.wantErr)
		}
	}
}

// TestSupportedSubsystems ensures the subsystem list is sorted and complete.
func TestSupportedSubsystems(t *testing.T) {
	got := supportedSubsystems()
	want := []string{"CHAN", "CMGR", "LGRD", "PEER", "RPCS", "SRVR", "SYNC"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected subsystems: got %v, want %v", got, want)
	}
}

// TestNormalizeAddress ensures a default port is only added to addresses
// without one.
func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{addr: ":6001", want: ":6001"},
		{addr: "127.0.0.1", want: "127.0.0.1:3001"},
		{addr: "localhost:1234", want: "localhost:1234"},
		{addr: "::1", want: "[::1]:3001"},
		{addr: "[::1]:4000", want: "[::1]:4000"},
	}

	for _, test := range tests {
		if got := normalizeAddress(test.addr, "3001"); got != test.want {
			t.Errorf("normalizeAddress(%q): got %q, want %q", test.addr,
				got, test.want)
		}
	}
}
