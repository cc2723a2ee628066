package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"kernelcheck/internal/campaign"
	"kernelcheck/internal/kernel"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7c3aed"))
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#ef4444")).
			Padding(0, 1)
)

// renderSummary prints one line per campaign that ran.
func renderSummary(w io.Writer, summaries []*campaign.Summary) {
	fmt.Fprintln(w, titleStyle.Render("kcheck results"))
	for _, s := range summaries {
		if s == nil {
			continue
		}
		mark := passStyle.Render("PASS")
		if s.Status != campaign.StatusDone {
			mark = failStyle.Render("FAIL")
		}
		detail := fmt.Sprintf("%d/%d trials", s.Passed, s.Trials)
		if s.SmallPassed > 0 {
			detail += fmt.Sprintf(" (small %d, general %d)", s.SmallPassed, s.GeneralPassed)
		}
		fmt.Fprintf(w, "  %s %-5s %s %s\n", mark, s.Kind, detail,
			dimStyle.Render(fmt.Sprintf("seed=%d %s %s", s.Seed, s.ID, s.Duration.Round(1e6))))
	}
}

// renderFailure prints everything needed to reproduce a failed trial.
func renderFailure(w io.Writer, err error) {
	var b strings.Builder

	var trialErr *campaign.TrialError
	if errors.As(err, &trialErr) {
		fmt.Fprintf(&b, "%s %s trial %d (%s)\n", failStyle.Render(strings.ToUpper(classLabel(err))),
			trialErr.Kind, trialErr.Trial, trialErr.Phase)
	} else {
		fmt.Fprintf(&b, "%s\n", failStyle.Render(strings.ToUpper(classLabel(err))))
	}

	var (
		misErr  *kernel.MismatchError
		procErr *kernel.ProcessExecutionError
		diagErr *kernel.UnexpectedDiagnosticOutputError
		fmtErr  *kernel.OutputFormatError
	)
	switch {
	case errors.As(err, &misErr):
		b.WriteString(misErr.Report.Headline() + "\n")
		b.WriteString(misErr.Report.String())
	case trialErr != nil:
		b.WriteString(trialErr.Err.Error())
		if trialErr.Instance != nil {
			b.WriteString("\n" + kernel.DescribeInput(trialErr.Instance))
			fmt.Fprintf(&b, "expected: %s", kernel.Hex32(trialErr.Expected))
		}
		switch {
		case errors.As(err, &procErr) && procErr.Stderr != "":
			fmt.Fprintf(&b, "\nstderr:   %q", procErr.Stderr)
		case errors.As(err, &diagErr):
			fmt.Fprintf(&b, "\nstdout:   %q", diagErr.Stdout)
		case errors.As(err, &fmtErr):
			fmt.Fprintf(&b, "\nstdout:   %q", fmtErr.Output)
		}
	default:
		b.WriteString(err.Error())
	}

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func classLabel(err error) string {
	switch kernel.Class(err) {
	case "process":
		return "process failure"
	case "diagnostic":
		return "unexpected diagnostic output"
	case "format":
		return "malformed output"
	case "mismatch":
		return "mismatch"
	case "configuration":
		return "configuration error"
	}
	return "aborted"
}
