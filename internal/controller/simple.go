package controller

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/toabey/gnat-llvm/internal/model"
)

const timeRounding = time.Millisecond

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// SimpleUI implements UI using cobra Command's Println.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayBuildResult prints the build outcome. On failure the compiler's
// diagnostics are echoed verbatim so the author reads the compiler's own
// words, not a paraphrase.
func (s *SimpleUI) DisplayBuildResult(report m.BuildReport) error {
	if report.Succeeded {
		s.printf("%s %s -> %s (%s)\n",
			okStyle.Render("built"), report.Target, report.Artifact, report.Duration.Round(timeRounding))

		return nil
	}

	s.printf("%s %s (exit %d)\n", failedStyle.Render("build failed"), report.Target, report.ExitCode)

	if out := strings.TrimSpace(report.Output); out != "" {
		s.printf("%s\n", out)
	}

	return nil
}

// DisplayCallResult prints the declared signature and the returned value.
func (s *SimpleUI) DisplayCallResult(decl m.Func, value any) error {
	if decl.Ret == m.Void {
		s.printf("%s returned\n", decl)
		return nil
	}

	s.printf("%s = %v\n", decl, value)

	return nil
}

// DisplayReports renders the build-report history.
func (s *SimpleUI) DisplayReports(reports []m.BuildReport) error {
	if len(reports) == 0 {
		s.printf("no build reports\n")
		return nil
	}

	s.printf("\n%s", renderReportsTable(reports))

	return nil
}

func renderReportsTable(reports []m.BuildReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Target", "Status", "Exit", "Duration", "Artifact"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	failures := 0

	for _, r := range reports {
		status := okStyle.Render("ok")
		if !r.Succeeded {
			status = failedStyle.Render("failed")
			failures++
		}

		table.Append([]string{
			string(r.Target),
			status,
			fmt.Sprintf("%d", r.ExitCode),
			r.Duration.Round(timeRounding).String(),
			string(r.Artifact),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", len(reports)),
		fmt.Sprintf("%d failed", failures),
		"", "", "",
	})

	table.Render()

	return tableBuffer.String()
}

func (s *SimpleUI) printf(format string, args ...any) {
	s.cmd.Printf(format, args...)
}
