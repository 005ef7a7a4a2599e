package relatics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// statusColors maps import message statuses to terminal colors. Comment
// deliberately has no color.
var statusColors = map[MessageStatus]lipgloss.Color{
	MessageProgress: lipgloss.Color("4"),
	MessageSuccess:  lipgloss.Color("2"),
	MessageWarning:  lipgloss.Color("3"),
	MessageError:    lipgloss.Color("1"),
}

// colorStatus renders a status, padded to the table column width before
// styling so the color codes do not break the alignment.
func colorStatus(status MessageStatus) string {
	padded := fmt.Sprintf("%-8s", string(status))
	color, ok := statusColors[status]
	if !ok {
		return padded
	}
	return lipgloss.NewStyle().Foreground(color).Render(padded)
}

// String renders the report data and a table of received documents.
func (r *ExportResult) String() string {
	var b strings.Builder

	if r.Data != nil {
		b.WriteString("[Data]:\n")
		b.WriteString(r.XML())
		b.WriteString("\n")
	}

	if len(r.Documents) > 0 {
		b.WriteString("[Documents]:\n")
		b.WriteString(headerStyle.Render("RelaticsFilename                              Size (bytes)"))
		b.WriteString("\n")

		names := make([]string, 0, len(r.Documents))
		for name := range r.Documents {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(&b, "%-45s %12d\n", name, len(r.Documents[name]))
		}
	}

	return b.String()
}

// String renders the import totals and colored message and element tables.
func (r *ImportResult) String() string {
	var b strings.Builder

	if r.TotalRows > 0 {
		fmt.Fprintf(&b, "Rows imported : %d\n", r.TotalRows)
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(&b, "Elapsed time  : %s\n", r.Elapsed)
	}

	if len(r.Messages) > 0 {
		b.WriteString("[Messages]:\n")
		b.WriteString(headerStyle.Render("Time      Row    Status    Message"))
		b.WriteString("\n")
		for _, message := range r.Messages {
			fmt.Fprintf(&b, "%s  %05d  %s  %s\n",
				message.Time, message.Row, colorStatus(message.Status), message.Message)
		}
	}

	if len(r.Elements) > 0 {
		b.WriteString("[Elements]:\n")
		b.WriteString(headerStyle.Render("Action  ID                                    Foreign key"))
		b.WriteString("\n")
		for _, element := range r.Elements {
			fmt.Fprintf(&b, "%-6s  %-36s  %s\n", element.Action, element.ID, element.ForeignKey)
		}
	}

	return b.String()
}
