package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	pkgstrings "comfyctl/pkg/strings"
)

// EnvRow is one conda environment together with its health probe result.
type EnvRow struct {
	Name    string `json:"name"`
	Prefix  string `json:"prefix"`
	Python  string `json:"python,omitempty"`
	Healthy bool   `json:"healthy"`
}

// ServiceRow is one monitored unit and its activation state.
type ServiceRow struct {
	Scope  string `json:"scope"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SettingRow is one settings-file entry, already masked for display.
type SettingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderEnvTable renders conda environments with their health state.
func RenderEnvTable(out io.Writer, rows []EnvRow) {
	t := newTable(out)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("PYTHON"),
		text.FgHiCyan.Sprint("HEALTH"),
		text.FgHiCyan.Sprint("PREFIX"),
	})

	for _, row := range rows {
		health := text.FgRed.Sprint("unhealthy")
		if row.Healthy {
			health = text.FgGreen.Sprint("healthy")
		}
		python := row.Python
		if python == "" {
			python = "-"
		}
		t.AppendRow(table.Row{row.Name, python, health, text.FgHiBlack.Sprint(row.Prefix)})
	}
	t.Render()
}

// RenderServiceTable renders monitored units and their activation state.
func RenderServiceTable(out io.Writer, rows []ServiceRow) {
	t := newTable(out)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SCOPE"),
		text.FgHiCyan.Sprint("SERVICE"),
		text.FgHiCyan.Sprint("STATUS"),
	})

	for _, row := range rows {
		t.AppendRow(table.Row{row.Scope, row.Name, colorStatus(row.Status)})
	}
	t.Render()
}

// RenderSettingsTable renders the deployed settings with secrets masked.
func RenderSettingsTable(out io.Writer, rows []SettingRow) {
	t := newTable(out)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("KEY"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	for _, row := range rows {
		// Values can run long (a populated SERVICES list, for one); keep the
		// table within a terminal width.
		value := pkgstrings.TruncateValue(row.Value, pkgstrings.DefaultValueMaxLen)
		if value == MaskedValue {
			value = text.FgHiBlack.Sprint(value)
		}
		t.AppendRow(table.Row{row.Key, value})
	}
	t.Render()
}

func colorStatus(status string) string {
	switch status {
	case "active", "running":
		return text.FgGreen.Sprint(status)
	case "failed", "error":
		return text.FgRed.Sprint(status)
	case "inactive", "deactivating", "activating", "reloading":
		return text.FgYellow.Sprint(status)
	default:
		return text.FgHiBlack.Sprint(status)
	}
}
