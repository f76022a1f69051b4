package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor     bool
	Verbose     bool
	WithTor     bool
	CheckUpdate bool

	PlatformsFile string
	CSVPath       string
	JSONPath      string
	OutPath       string

	Timeout time.Duration
	Workers int
	Delay   time.Duration
}

const usageText = `
usage:
  namecheck [flags] USERNAME [USERNAMES...]

positional arguments:
  USERNAMES             one or more usernames to check

flags:
  -h, --help            show this help message and exit
  --no-color            disable colored stdout output
  -v, --verbose         verbose output (per-probe debug logs)
  -t, --tor             use tor proxy
  --check-update        check for a newer release before running

options:
  --platforms PATH      use a custom platform table (JSON array)
  --timeout SECONDS     HTTP request timeout per probe (default: 10)
  --workers N           max concurrent probes (default: 4)
  --delay MILLISECONDS  minimum delay between requests to the same platform (default: 600)
  --csv PATH            export results as CSV
  --json PATH           export results as JSON
  --out PATH            write a plain transcript of the results
`

func Parse(args []string, stdout, stderr io.Writer) (Options, []string, error) {
	var opts Options
	var (
		help     bool
		timeoutS int
		delayMS  int
	)

	fs := flag.NewFlagSet("namecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	// Help
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	// Behavior flags
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&opts.WithTor, "t", false, "use tor proxy")
	fs.BoolVar(&opts.WithTor, "tor", false, "use tor proxy")
	fs.BoolVar(&opts.CheckUpdate, "check-update", false, "check for a newer release")

	// Options
	fs.StringVar(&opts.PlatformsFile, "platforms", "", "custom platform table path")
	fs.IntVar(&timeoutS, "timeout", 10, "request timeout in seconds")
	fs.IntVar(&opts.Workers, "workers", 4, "max concurrent probes")
	fs.IntVar(&delayMS, "delay", 600, "per-platform delay in milliseconds")
	fs.StringVar(&opts.CSVPath, "csv", "", "CSV export path")
	fs.StringVar(&opts.JSONPath, "json", "", "JSON export path")
	fs.StringVar(&opts.OutPath, "out", "", "plain transcript path")

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}
	if help {
		fs.Usage()
		return Options{}, nil, ErrHelp
	}

	if timeoutS <= 0 {
		// Don't allow zero or negative timeouts; reset to default.
		timeoutS = 10
		if opts.NoColor {
			fmt.Fprintf(stdout, "[!] Invalid timeout value; using default of 10 seconds.\n")
		} else {
			fmt.Fprintf(color.Output, "[%s] Invalid timeout value; using default of %s.\n",
				color.HiRedString("!"),
				color.HiYellowString("10 seconds"),
			)
		}
	}
	opts.Timeout = time.Duration(timeoutS) * time.Second

	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	if delayMS < 0 {
		delayMS = 0
	}
	opts.Delay = time.Duration(delayMS) * time.Millisecond

	usernames := fs.Args()
	return opts, usernames, nil
}
