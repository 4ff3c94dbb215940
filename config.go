// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/lumowallet/lumowallet/chain"
	"github.com/lumowallet/lumowallet/internal/cfgutil"
	"github.com/lumowallet/lumowallet/lumo"
	"github.com/lumowallet/lumowallet/lumodb"
	"github.com/lumowallet/lumowallet/netparams"
)

const (
	defaultConfigFilename = "lumowallet.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lumowallet.log"
)

var (
	lumoHomeDir       = btcutil.AppDataDir("lumo", false)
	defaultConfigFile = filepath.Join(lumoHomeDir, defaultConfigFilename)
	defaultAppDataDir = lumoHomeDir
	defaultLogDir     = filepath.Join(lumoHomeDir, defaultLogDirname)
)

type config struct {
	// General application behavior
	ConfigFile  string               `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool                 `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir  string               `short:"A" long:"appdata" description:"Application data directory for the database and wallet files"`
	Network     *cfgutil.NetworkFlag `short:"n" long:"network" description:"Network of new wallets and network filter of listwallets {mainnet, testnet, testnet4, signet, regtest}"`
	DebugLevel  string               `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir      string               `long:"logdir" description:"Directory to log output"`
	LogStderr   bool                 `long:"logstderr" description:"Also write log output to standard error"`
	DBTimeout   time.Duration        `long:"dbtimeout" description:"The timeout value to use when opening the application database"`

	// Chain backend options
	Esplora       []string `long:"esplora" description:"Esplora API root to use instead of the network defaults; may be repeated"`
	FeeURL        string   `long:"feeurl" description:"Recommended fees endpoint to use instead of the network default"`
	MaxRetries    int      `long:"maxretries" description:"Retries of a failed chain request per endpoint"`
	RequestsLimit float64  `long:"requestlimit" description:"Maximum chain requests per second, 0 for no limit"`
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsytems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
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
				"supported subsytems %v"
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

// defaultConfig returns the config with every default applied.
func defaultConfig() config {
	return config{
		ConfigFile:    defaultConfigFile,
		AppDataDir:    defaultAppDataDir,
		Network:       cfgutil.NewNetworkFlag(netparams.Bitcoin),
		DebugLevel:    defaultLogLevel,
		LogDir:        defaultLogDir,
		DBTimeout:     lumodb.DefaultDBTimeout,
		MaxRetries:    chain.DefaultMaxRetries,
		RequestsLimit: chain.DefaultRequestsPerSecond,
	}
}

// newParser returns a parser over cfg with every command registered.
func newParser(cfg *config, options flags.Options) (*flags.Parser, error) {
	parser := flags.NewParser(cfg, options)
	for _, c := range commands(cfg) {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// loadConfig initializes and parses the config using a config file and command
// line options, then runs the selected command.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in lumowallet functioning properly without any config
// settings while still allowing the user to override settings with config files
// and command line options.  Command line options always take precedence.
// Commands read the final config through finishConfig before doing any work.
func loadConfig(args []string) error {
	// Default config.
	cfg := defaultConfig()

	// A config file in the current directory takes precedence.
	exists, err := cfgutil.FileExists(defaultConfigFilename)
	if err != nil {
		return err
	}
	if exists {
		cfg.ConfigFile = defaultConfigFilename
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Command arguments are
	// ignored here.
	preCfg := cfg
	preCfg.Network = cfgutil.NewNetworkFlag(cfg.Network.Network)
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	_, _ = preParser.ParseArgs(args)

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		return nil
	}

	// Load additional config from file.  Errors are printed by the caller.
	parser, err := newParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if err != nil {
		return err
	}
	configFile := cfgutil.CleanAndExpandPath(preCfg.ConfigFile)
	err = flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	// The command runs as part of this parse.
	_, err = parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return nil
		}
		return err
	}

	return nil
}

// configFileError records a missing config file. It is logged once logging
// is set up, so help output stays free of warnings.
var configFileError error

// finishConfig validates the parsed config, expands its paths and sets up
// logging. Every command calls it before doing any work.
func finishConfig(cfg *config) error {
	cfg.AppDataDir = cfgutil.CleanAndExpandPath(cfg.AppDataDir)

	// If an alternate data directory was specified, and the log directory
	// was left at its default, keep the logs inside the data directory.
	if cfg.AppDataDir != defaultAppDataDir && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(cfg.AppDataDir, defaultLogDirname)
	}
	cfg.LogDir = cfgutil.CleanAndExpandPath(cfg.LogDir)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		return errShowSubsystems
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	logToStderr = cfg.LogStderr
	err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		return err
	}
	setLogLevels(defaultLogLevel)

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return fmt.Errorf("loadConfig: %w", err)
	}

	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	cfg.Esplora, err = cfgutil.NormalizeURLs(cfg.Esplora)
	if err != nil {
		return fmt.Errorf("invalid esplora URL: %w", err)
	}
	if cfg.FeeURL != "" {
		cfg.FeeURL, err = cfgutil.NormalizeURL(cfg.FeeURL)
		if err != nil {
			return fmt.Errorf("invalid fee URL: %w", err)
		}
	}

	if cfg.MaxRetries < 0 {
		return fmt.Errorf("maxretries must not be negative")
	}
	if cfg.RequestsLimit < 0 {
		return fmt.Errorf("requestlimit must not be negative")
	}

	return nil
}

// errShowSubsystems ends a run after listing the log subsystems.
var errShowSubsystems = errors.New("subsystems listed")

// appOptions returns the lumo options described by cfg.
func (cfg *config) appOptions() []lumo.Option {
	opts := []lumo.Option{
		lumo.WithDBTimeout(cfg.DBTimeout),
		lumo.WithMaxRetries(cfg.MaxRetries),
	}

	// The app treats a negative limit as unlimited.
	if cfg.RequestsLimit == 0 {
		opts = append(opts, lumo.WithRequestsPerSecond(-1))
	} else {
		opts = append(opts, lumo.WithRequestsPerSecond(cfg.RequestsLimit))
	}

	if len(cfg.Esplora) > 0 {
		opts = append(opts, lumo.WithEsploraURLs(cfg.Esplora...))
	}
	if cfg.FeeURL != "" {
		opts = append(opts, lumo.WithFeeEstimateURL(cfg.FeeURL))
	}

	return opts
}
