package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wgcap/wgcap/internal/capture/wgc"
)

var outputFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable windows or displays",
}

var listWindowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List windows that can be captured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		windows, err := wgc.ListWindows()
		if err != nil {
			return err
		}
		rows := make([]windowRow, 0, len(windows))
		for _, w := range windows {
			rows = append(rows, newWindowRow(w))
		}
		return render(os.Stdout, outputFormat, rows)
	},
}

var listDisplaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List displays",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		displays, err := wgc.ListDisplays()
		if err != nil {
			return err
		}
		rows := make([]displayRow, 0, len(displays))
		for i, d := range displays {
			rows = append(rows, displayRow{
				ID:     i,
				Name:   d.Name,
				Handle: fmt.Sprintf("0x%X", d.Handle),
				Left:   d.Bounds.Left,
				Top:    d.Bounds.Top,
				Width:  d.Bounds.Width(),
				Height: d.Bounds.Height(),
			})
		}
		return render(os.Stdout, outputFormat, rows)
	},
}

func init() {
	listCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, yaml, json)")
	listCmd.AddCommand(listWindowsCmd)
	listCmd.AddCommand(listDisplaysCmd)
}

type windowRow struct {
	Handle  string `json:"handle" yaml:"handle"`
	PID     uint32 `json:"pid" yaml:"pid"`
	Process string `json:"process,omitempty" yaml:"process,omitempty"`
	Title   string `json:"title" yaml:"title"`
	Class   string `json:"class" yaml:"class"`
}

func newWindowRow(w *wgc.Window) windowRow {
	row := windowRow{
		Handle: fmt.Sprintf("0x%X", w.Handle),
		Title:  w.Title,
		Class:  w.ClassName,
	}
	pid, err := w.ProcessID()
	if err != nil {
		log.Debug("process id lookup failed", "window", w.String(), "error", err)
		return row
	}
	row.PID = pid
	row.Process = processName(pid)
	return row
}

func processName(pid uint32) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

type displayRow struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Handle string `json:"handle" yaml:"handle"`
	Left   int32  `json:"left" yaml:"left"`
	Top    int32  `json:"top" yaml:"top"`
	Width  int32  `json:"width" yaml:"width"`
	Height int32  `json:"height" yaml:"height"`
}

// tableRow is implemented by the row types for text output.
type tableRow interface {
	windowRow | displayRow
}

func render[T tableRow](w io.Writer, format string, rows []T) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for i, r := range rows {
			switch r := any(r).(type) {
			case windowRow:
				if i == 0 {
					fmt.Fprintln(tw, "HANDLE\tPID\tPROCESS\tCLASS\tTITLE")
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Handle, r.PID, r.Process, r.Class, r.Title)
			case displayRow:
				if i == 0 {
					fmt.Fprintln(tw, "ID\tNAME\tHANDLE\tPOSITION\tSIZE")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d,%d\t%dx%d\n", r.ID, r.Name, r.Handle, r.Left, r.Top, r.Width, r.Height)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (use text, yaml, json)", format)
	}
}
