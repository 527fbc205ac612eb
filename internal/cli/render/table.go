package render

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newTable returns a borderless writer with left-aligned columns
func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingRight: "   ",
	}
	t.Style().Format.Header = text.FormatDefault

	if len(header) > 0 {
		colConfigs := make([]table.ColumnConfig, len(header))
		for i := range header {
			colConfigs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft}
		}
		t.SetColumnConfigs(colConfigs)
		t.AppendHeader(table.Row(header))
	}
	return t
}
