package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brd/internal/daemon"
	"brd/internal/dump"
	"brd/internal/report"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// maxPayloadColumn truncates long payloads in the print table.
const maxPayloadColumn = 60

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func renderReports(reports []report.Report, now time.Time) string {
	rows := make([][]string, 0, len(reports))
	for i, r := range reports {
		origin := r.Origin()
		if origin == "" {
			origin = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(r.Channel()),
			origin,
			humanize.RelTime(r.ReceivedAt(), now, "ago", "from now"),
			truncate(string(r.Data()), maxPayloadColumn),
		})
	}
	return renderTable(
		[]string{"#", "Channel", "Origin", "Received", "Data"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func renderStatus(status daemon.Status, colorize bool) string {
	addr := status.Addr
	if addr == "" {
		addr = "-"
	}
	rows := [][]string{
		{"State", stateLabel(status.State, colorize)},
		{"Address", addr},
		{"Reports", humanize.Comma(int64(status.Reports))},
		{"Accepted", humanize.Comma(status.Listener.Accepted)},
		{"Stored", humanize.Comma(status.Listener.Stored)},
		{"Duplicates", humanize.Comma(status.Listener.Duplicates)},
		{"Rejected", humanize.Comma(status.Listener.Rejected)},
		{"Mail", mailLabel(status.MailConfigured, colorize)},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

func stateLabel(state daemon.State, colorize bool) string {
	label := cases.Title(language.English).String(state.String())
	if !colorize {
		return label
	}
	if state == daemon.StateRunning {
		return ansiGreen + label + ansiReset
	}
	return ansiYellow + label + ansiReset
}

func mailLabel(configured, colorize bool) string {
	if configured {
		return "configured"
	}
	if colorize {
		return ansiRed + "not configured" + ansiReset
	}
	return "not configured"
}

func describeDump(res dump.Result) string {
	noun := "reports"
	if res.Count == 1 {
		noun = "report"
	}
	return fmt.Sprintf("%d %s, %s", res.Count, noun, humanize.Bytes(uint64(res.Bytes)))
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
