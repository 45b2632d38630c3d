package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

const (
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorSuccess = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#6B7280")
	colorTitle   = lipgloss.Color("#7C3AED")
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
)

// colorEnabled is switched off by --no-color.
var colorEnabled = true

// printer writes human readable output. Styling is dropped when color is
// off or the writer is not a terminal.
type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(out io.Writer) printer {
	color := colorEnabled
	if file, ok := out.(*os.File); !ok || !isTerminal(file) {
		color = false
	}
	return printer{out: out, color: color}
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func (p printer) render(style lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return style.Render(text)
}

func (p printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p printer) title(text string) {
	p.printf("%s\n", p.render(titleStyle, text))
}

func (p printer) errorLine(message string) string {
	return p.render(errorStyle, "error:") + " " + message
}

func (p printer) severity(severity types.Severity) string {
	label := fmt.Sprintf("%-7s", string(severity))
	switch severity {
	case types.SeverityError:
		return p.render(errorStyle, label)
	case types.SeverityWarning:
		return p.render(warningStyle, label)
	default:
		return label
	}
}

func (p printer) validationReport(report types.ValidationReport) {
	for _, issue := range report.Issues {
		location := issue.Path
		if issue.Field != "" {
			location += ":" + issue.Field
		}
		p.printf("%s %s %s %s\n",
			p.severity(issue.Severity),
			location,
			p.render(mutedStyle, "["+issue.Code+"]"),
			issue.Message,
		)
	}
	summary := fmt.Sprintf("%d document(s), %d error(s), %d warning(s)", report.Documents, report.Errors(), report.Warnings())
	if report.Errors() == 0 {
		p.printf("%s\n", p.render(successStyle, summary))
		return
	}
	p.printf("%s\n", p.render(errorStyle, summary))
}

func (p printer) muted(text string) string {
	return p.render(mutedStyle, text)
}

// writeStructured encodes value as json or yaml.
func writeStructured(out io.Writer, format string, value any) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case formatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported output format %q", format))
	}
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", formatText:
		return formatText, nil
	case formatJSON, formatYAML:
		return format, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported output format %q (want text, json or yaml)", format))
	}
}
