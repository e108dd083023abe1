// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/internal/version"
	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/sampleconfig"
	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "ledgerd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "ledgerd.log"
	defaultLogLevel       = "info"
	defaultMaxLogSizeKiB  = 10 * 1024
	defaultListen         = ":6001"
	defaultRPCListen      = ":3001"
	defaultDialTimeout    = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxFrameSize   = 32 * 1024 * 1024
	defaultGenesisData    = ledger.DefaultGenesisData
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("ledgerd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for ledgerd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	GenesisData   string `long:"genesisdata" description:"Data carried by the genesis block -- Must match every other node of the network"`

	// Network settings.
	Listen       string        `long:"listen" env:"LEDGERD_LISTEN" description:"Interface/port to listen for websocket peer connections"`
	Peers        []string      `long:"peer" env:"LEDGERD_PEERS" env-delim:"," description:"Websocket URL of a peer to connect to at startup (ws://host:port) -- May be specified multiple times"`
	Proxy        string        `long:"proxy" description:"Connect to peers via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser    string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass    string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	DialTimeout  time.Duration `long:"dialtimeout" description:"How long to wait for an outbound connection to complete its handshake"`
	WriteTimeout time.Duration `long:"writetimeout" description:"How long a single write to a peer may take before the peer is dropped"`
	MaxFrameSize int64         `long:"maxframesize" description:"Maximum size in bytes of a single frame received from a peer"`

	// RPC server options.
	RPCListeners []string `long:"rpclisten" env:"LEDGERD_RPCLISTEN" env-delim:"," description:"Add an interface/port to listen for HTTP control API requests (default :3001)"`
	DisableRPC   bool     `long:"norpc" description:"Disable the HTTP control API"`

	// peerAddrs holds the parsed form of Peers.
	peerAddrs []peer.Addr
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not caused
// by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := slog.LevelFromString(logLevel)
	return ok
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// createDefaultConfigFile creates a config file at the specified path with
// the commented sample configuration.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	const perms = 0600
	return os.WriteFile(destPath, []byte(sampleconfig.Ledgerd()), perms)
}

// normalizeAddress returns addr with the default port added when it does not
// already specify one.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in ledgerd functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.  The LEDGERD_LISTEN, LEDGERD_RPCLISTEN and LEDGERD_PEERS
// environment variables replace the defaults of the matching options.
func loadConfig(appName string) (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:      defaultHomeDir,
		ConfigFile:   defaultConfigFile,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
		GenesisData:  defaultGenesisData,
		Listen:       defaultListen,
		DialTimeout:  defaultDialTimeout,
		WriteTimeout: defaultWriteTimeout,
		MaxFrameSize: defaultMaxFrameSize,
	}

	// Pre-parse the command line options to see if an alternative config
	// file, home directory, or the version flag was specified.  Any errors
	// aside from the help message error can be ignored here since they will
	// be caught by the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory for ledgerd if specified.  Since the home
	// directory is updated, other variables need to be updated to reflect the
	// new changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(cleanAndExpandPath(preCfg.HomeDir))

		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		} else {
			cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is linked to a
		// directory that does not exist (probably because it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: failed to create home directory: %v"
		err := errSuppressUsage(fmt.Sprintf(str, funcName, err))
		return nil, nil, err
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(cfg.ConfigFile); os.IsNotExist(err) {
			err := createDefaultConfigFile(cfg.ConfigFile)
			if err != nil {
				str := "%s: failed to create default config file: %v"
				err := errSuppressUsage(fmt.Sprintf(str, funcName, err))
				return nil, nil, err
			}
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			err = fmt.Errorf("error parsing config file: %w", err)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}
	if len(remainingArgs) > 0 {
		str := "%s: unexpected positional arguments %v"
		return nil, nil, fmt.Errorf(str, funcName, remainingArgs)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if !cfg.NoFileLogging {
		cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
		logPath := filepath.Join(cfg.LogDir, defaultLogFilename)
		err := initLogRotator(logPath, defaultMaxLogSizeKiB)
		if err != nil {
			str := "%s: %v"
			return nil, nil, errSuppressUsage(fmt.Sprintf(str, funcName, err))
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}

	// Validate the peer listener.
	cfg.Listen = normalizeAddress(cfg.Listen, "6001")
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		str := "%s: invalid --listen address %q: %v"
		return nil, nil, fmt.Errorf(str, funcName, cfg.Listen, err)
	}

	// Default RPC to listen on all interfaces when no listeners were given.
	if !cfg.DisableRPC {
		if len(cfg.RPCListeners) == 0 {
			cfg.RPCListeners = []string{defaultRPCListen}
		}
		for i, addr := range cfg.RPCListeners {
			cfg.RPCListeners[i] = normalizeAddress(addr, "3001")
		}
	}

	// Parse the startup peers.  Empty entries, which result from an empty
	// LEDGERD_PEERS environment variable, are ignored.
	for _, s := range cfg.Peers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		addr, err := peer.ParseAddr(s)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: invalid --peer: %w", funcName, err)
		}
		cfg.peerAddrs = append(cfg.peerAddrs, addr)
	}

	// The proxy credentials are meaningless without a proxy.
	if cfg.Proxy == "" && (cfg.ProxyUser != "" || cfg.ProxyPass != "") {
		str := "%s: --proxyuser and --proxypass require --proxy"
		return nil, nil, fmt.Errorf(str, funcName)
	}

	switch {
	case cfg.DialTimeout <= 0:
		str := "%s: --dialtimeout must be positive"
		return nil, nil, fmt.Errorf(str, funcName)
	case cfg.WriteTimeout <= 0:
		str := "%s: --writetimeout must be positive"
		return nil, nil, fmt.Errorf(str, funcName)
	case cfg.MaxFrameSize <= 0:
		str := "%s: --maxframesize must be positive"
		return nil, nil, fmt.Errorf(str, funcName)
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid options.
	// Note this should go directly before the return.
	if configFileError != nil {
		lgrdLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
