package display

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Table is a header row plus data rows, printed with pterm or as a list of
// JSON objects keyed by header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Append adds one row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Records returns one header-keyed map per row.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for j, h := range t.Header {
			if j < len(row) {
				rec[h] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// Render prints the table in the format cmd asks for.
func (t *Table) Render(cmd *cobra.Command) error {
	if ShouldOutputJSON(cmd) {
		return OutputJSON(t.Records())
	}
	if len(t.Rows) == 0 {
		pterm.Info.Println("Nothing to show")
		return nil
	}
	data := pterm.TableData{t.Header}
	data = append(data, t.Rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(Stdout).WithData(data).Render()
}
