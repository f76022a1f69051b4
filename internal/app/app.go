// Package app wires the CLI, prober, printer and exporters together.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/mlftt/namecheck/internal/cli"
	"github.com/mlftt/namecheck/internal/httpx"
	"github.com/mlftt/namecheck/internal/output"
	"github.com/mlftt/namecheck/internal/platform"
	"github.com/mlftt/namecheck/internal/probe"
	"github.com/mlftt/namecheck/internal/report"
	"github.com/mlftt/namecheck/internal/update"
)

// Version is stamped at build time.
var Version = "1.0.0"

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "namecheck - Check username availability across social platforms.")

	opts, usernames, err := cli.Parse(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	color.NoColor = opts.NoColor

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: opts.NoColor})
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     opts.Timeout,
		WithTor:     opts.WithTor,
		TorProxyURL: httpx.DefaultTorProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	if opts.CheckUpdate {
		checkUpdate(ctx, httpClient, stdout, opts.NoColor, logger)
	}

	table, err := loadTable(opts.PlatformsFile)
	if err != nil {
		fmt.Fprintf(stderr, "platform table error: %v\n", err)
		return 1
	}

	// Back-compat with the desktop tool: prompt when no usernames given.
	if len(usernames) == 0 {
		usernames = promptUsernames(stdout, stdin)
		if len(usernames) == 0 {
			fmt.Fprintln(stderr, "no usernames provided")
			return 2
		}
	}

	if opts.NoColor {
		fmt.Fprintf(stdout, "\nChecking %d username(s) across %d platform(s):\n", len(usernames), table.Len())
	} else {
		fmt.Fprintf(color.Output, "\nChecking %s username(s) across %s platform(s):\n",
			color.HiGreenString("%d", len(usernames)),
			color.HiGreenString("%d", table.Len()),
		)
	}

	var buf *strings.Builder
	if opts.OutPath != "" {
		buf = &strings.Builder{}
	}
	printer := output.NewPrinter(stdout, opts.NoColor, opts.Verbose, buf)

	prober := probe.NewProber(httpClient, probe.Config{
		UserAgent:    httpx.DefaultUserAgent,
		MaxBodyBytes: 2 << 20, // max body read for marker checks
	}, logger)
	runner := probe.NewRunner(prober, opts.Workers, opts.Delay)

	rep := report.New(table.Names())

	err = runner.Run(ctx, usernames, table.Specs(), probe.Hooks{
		OnResult: func(res probe.Result) {
			rep.Add(res)
			printer.Result(res)
		},
		OnInvalid: func(username string, err error) {
			rep.AddInvalid(username, err)
			printer.Invalid(username, err)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "probe run error: %v\n", err)
		// Partial results are still worth exporting.
	}

	exitCode := 0
	if opts.CSVPath != "" {
		if err := rep.ExportCSV(opts.CSVPath); err != nil {
			logger.WithError(err).Warn("CSV export failed")
			fmt.Fprintf(stderr, "CSV export failed: %v\n", err)
			exitCode = 1
		}
	}
	if opts.JSONPath != "" {
		if err := rep.ExportJSON(opts.JSONPath); err != nil {
			logger.WithError(err).Warn("JSON export failed")
			fmt.Fprintf(stderr, "JSON export failed: %v\n", err)
			exitCode = 1
		}
	}
	if opts.OutPath != "" {
		if err := writeTranscript(opts.OutPath, buf.String()); err != nil {
			fmt.Fprintf(stderr, "transcript write failed: %v\n", err)
			exitCode = 1
		}
	}

	return exitCode
}

func loadTable(path string) (*platform.Table, error) {
	if path == "" {
		return platform.Builtin(), nil
	}
	return platform.LoadFile(path)
}

func checkUpdate(ctx context.Context, client httpx.Doer, stdout io.Writer, noColor bool, logger *logrus.Logger) {
	status, err := update.Check(ctx, client, update.DefaultReleaseURL, Version)
	if err != nil {
		// Purely informational; a failed check never blocks the run.
		logger.WithError(err).Warn("update check failed")
		return
	}

	if !status.Newer {
		fmt.Fprintf(stdout, "[i] namecheck %s is up to date.\n", status.Current)
		return
	}

	if noColor {
		fmt.Fprintf(stdout, "[!] A newer release is available: %s (running %s)\n", status.Latest, status.Current)
	} else {
		fmt.Fprintf(color.Output, "[%s] A newer release is available: %s (running %s)\n",
			color.HiYellowString("!"),
			color.HiGreenString(status.Latest),
			status.Current,
		)
	}
}

func promptUsernames(stdout io.Writer, stdin io.Reader) []string {
	fmt.Fprint(stdout, "Enter usernames to check separated by a space: ")
	r := bufio.NewReader(stdin)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	return strings.Fields(line)
}

func writeTranscript(path, transcript string) error {
	return os.WriteFile(path, []byte(transcript), 0o600)
}
