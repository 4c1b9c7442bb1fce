package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bdbm/internal/battery"
	"bdbm/internal/model"
)

const NoDevices = "No Bluetooth devices found."

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	lowStyle    = cellStyle.Foreground(lipgloss.Color("203"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("241"))
)

// BatteryLines renders one line per device: the name padded to the longest
// name plus three spaces, then the charge.
//
//	Magic Mouse      17%
//	Magic Keyboard   71%
func BatteryLines(statuses []battery.Status) string {
	if len(statuses) == 0 {
		return NoDevices + "\n"
	}
	width := 0
	for _, s := range statuses {
		width = max(width, len(s.Device))
	}
	var b strings.Builder
	for _, s := range statuses {
		fmt.Fprintf(&b, "%-*s%d%%\n", width+3, s.Device, s.Percent)
	}
	return b.String()
}

// BatteryTable renders statuses as a bordered table, highlighting devices
// below warn.
func BatteryTable(statuses []battery.Status, warn int) string {
	if len(statuses) == 0 {
		return NoDevices + "\n"
	}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		volts := ""
		if s.VoltageMv > 0 {
			volts = fmt.Sprintf("%.2fV", float64(s.VoltageMv)/1000)
		}
		rows = append(rows, []string{s.Device, strconv.Itoa(s.Percent) + "%", volts})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DEVICE", "CHARGE", "VOLTAGE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(statuses) && statuses[row].Percent < warn:
				return lowStyle
			default:
				return cellStyle
			}
		})
	return t.String() + "\n"
}

// Agenda renders occurrences as a table of date, time, title and source.
// All-day occurrences show "all day" in the time column.
func Agenda(occs []model.Occurrence) string {
	if len(occs) == 0 {
		return "No events in range.\n"
	}
	rows := make([][]string, 0, len(occs))
	for _, o := range occs {
		when := o.Start.Format("15:04") + "–" + o.End.Format("15:04")
		if o.AllDay {
			when = "all day"
		}
		rows = append(rows, []string{o.Start.Format("Mon 2006-01-02"), when, o.Summary, o.SourceID})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "TIME", "TITLE", "SOURCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3:
				return mutedStyle
			default:
				return cellStyle
			}
		})
	return t.String() + "\n"
}

// Span renders a window as "2006-01-02 → 2006-01-02" for headings.
func Span(start, end time.Time) string {
	return start.Format("2006-01-02") + " → " + end.Format("2006-01-02")
}
