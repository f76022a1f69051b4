package output

import (
	"io"
	"log"
	"strings"

	"github.com/fatih/color"

	"github.com/mlftt/namecheck/internal/probe"
)

type Printer struct {
	noColor bool
	verbose bool

	logger *log.Logger
	stream *log.Logger // optional (writes to a plain transcript buffer)
}

func NewPrinter(stdout io.Writer, noColor, verbose bool, buf *strings.Builder) *Printer {
	p := &Printer{
		noColor: noColor,
		verbose: verbose,
		logger:  log.New(stdout, "", 0),
	}
	if buf != nil {
		p.stream = log.New(buf, "", 0)
	}
	return p
}

func (p *Printer) Result(res probe.Result) {
	mark, detail := p.line(res)

	// Transcript output is always plain.
	if p.stream != nil {
		p.stream.Printf("[%s] %s/%s: %s", mark, res.Username, res.Platform, detail)
	}

	if p.noColor {
		p.logger.Printf("[%s] %s/%s: %s", mark, res.Username, res.Platform, detail)
		return
	}

	pair := res.Username + "/" + res.Platform

	switch res.Verdict {
	case probe.VerdictTaken:
		p.logger.Printf("[%s] %s: %s", color.HiRedString(mark), color.HiWhiteString(pair), detail)
	case probe.VerdictAvailable:
		p.logger.Printf("[%s] %s: %s", color.HiGreenString(mark), color.HiWhiteString(pair), color.HiGreenString(detail))
	default:
		p.logger.Printf("[%s] %s: %s", color.HiYellowString(mark), pair, color.HiYellowString(detail))
	}
}

func (p *Printer) Invalid(username string, err error) {
	if p.stream != nil {
		p.stream.Printf("[!] %s: %s", username, err.Error())
	}
	if p.noColor {
		p.logger.Printf("[!] %s: %s", username, err.Error())
		return
	}
	p.logger.Printf("[%s] %s: %s", color.HiRedString("!"), username, color.HiRedString(err.Error()))
}

func (p *Printer) line(res probe.Result) (mark, detail string) {
	switch res.Verdict {
	case probe.VerdictTaken:
		return "+", "taken"
	case probe.VerdictAvailable:
		return "-", "available"
	default:
		detail = "unknown"
		if res.Reason != "" {
			detail += " (" + res.Reason + ")"
		}
		if p.verbose && res.Err != nil {
			detail += ": " + res.Err.Error()
		}
		return "?", detail
	}
}
