package main

import (
	"fmt"
	"os"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	flags "github.com/jessevdk/go-flags"

	"github.com/rwax/earnpool/adapter"
	"github.com/rwax/earnpool/agent"
	"github.com/rwax/earnpool/otc"
)

// Version of the binary, assigned during build.
var Version string = "dev"

// Options contains the flag options
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Version bool   `long:"version" description:"Print version and exit."`
	Config  string `short:"c" long:"config" description:"Path to the YAML config file." default:"earnpool.yml"`

	Pool struct {
		Store   string `long:"store" description:"Storage driver, overrides config. (persist|memory)"`
		DataDir string `long:"datadir" description:"Storage directory for the persist driver, overrides config."`
	} `command:"pool" description:"Run an earn pool instance."`

	Bot struct {
		PollInterval string `long:"poll" description:"Settlement poll interval, overrides config."`
	} `command:"bot" description:"Run the settlement bot against an in-process pool."`

	Status struct {
		DataDir string `long:"datadir" description:"Storage directory of the pool to inspect."`
	} `command:"status" description:"Print a pool status snapshot."`
}

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

func subcommand(cmd string, options Options) error {
	switch cmd {
	case "pool":
		return runPool(options)
	case "bot":
		return runBot(options)
	case "status":
		return runStatus(options)
	}
	return fmt.Errorf("unknown command: %q", cmd)
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Println(err)
		}
		return
	}

	if options.Version {
		fmt.Println(Version)
		os.Exit(0)
	}

	// Figure out the log level
	numVerbose := len(options.Verbose)
	if numVerbose > len(logLevels) {
		numVerbose = len(logLevels) - 1
	}

	logLevel := logLevels[numVerbose]
	logWriter := os.Stderr

	SetLogger(golog.New(logWriter, logLevel))
	if logLevel == log.Debug {
		// Enable logging from subpackages
		adapter.SetLogger(logWriter)
		agent.SetLogger(logWriter)
		otc.SetLogger(logWriter)
	}

	cmd := "pool"
	if parser.Active != nil {
		cmd = parser.Active.Name
	}
	if err := subcommand(cmd, options); err != nil {
		exit(2, "%s failed: %s\n", cmd, err)
	}
}

func exit(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}
