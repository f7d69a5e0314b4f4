package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"outreach/internal/control"
	"outreach/internal/decision"
	"outreach/internal/engine"
	"outreach/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	stateColors = map[engine.State]lipgloss.Color{
		engine.StateReady:    lipgloss.Color("#4A90D9"),
		engine.StateRunning:  lipgloss.Color("#3FA34D"),
		engine.StateStopping: lipgloss.Color("#E0A030"),
		engine.StateStopped:  lipgloss.Color("#8A8A8A"),
		engine.StateDryRun:   lipgloss.Color("#9B59B6"),
	}

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FA34D"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9534F"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
)

func stateBadge(s engine.State) string {
	color, ok := stateColors[s]
	if !ok {
		color = lipgloss.Color("#8A8A8A")
	}
	return badgeStyle.Background(color).Foreground(lipgloss.Color("#FFFFFF")).Render(string(s))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func printResponse(w io.Writer, resp engine.Response) {
	mark := okStyle.Render("ok")
	if !resp.OK {
		mark = failStyle.Render("rejected")
	}
	line := mark
	if resp.Message != "" {
		line += "  " + resp.Message
	}
	if resp.Status != nil {
		line = stateBadge(resp.Status.State) + " " + line
	}
	fmt.Fprintln(w, line)
	if resp.Result != nil {
		printResult(w, resp.Result)
	}
}

func printStatus(w io.Writer, s engine.Status) {
	mode := "live"
	if s.Simulate {
		mode = "simulated"
	}
	fmt.Fprintf(w, "%s  invites: %d  mode: %s\n", stateBadge(s.State), s.InvitesSent, mode)
	if s.RunID != "" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("run %s  page %d  operation %s", s.RunID, s.Page, s.ActiveOperation)))
	}
	if s.LastResult != nil {
		printResult(w, s.LastResult)
	}
}

func printResult(w io.Writer, res *engine.Result) {
	invites := 0
	for _, p := range res.Profiles {
		if p.Outcome == decision.Invite {
			invites++
		}
	}
	fmt.Fprintf(w, "%s result at %s: %d profiles, %d to invite\n",
		res.OpID, time.UnixMilli(res.Timestamp).Format(time.DateTime), len(res.Profiles), invites)
	if len(res.Profiles) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Title", "Location", "Mutual", "Decision", "Reason"})
	for _, p := range res.Profiles {
		t.AppendRow(table.Row{p.Name, p.Title, p.Location, p.MutualConnections, outcomeLabel(p.Outcome), p.Reason})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "Reason", WidthMax: 40},
		{Name: "Mutual", Align: text.AlignRight},
	})
	t.Render()
}

func outcomeLabel(o decision.Outcome) string {
	if o == decision.Invite {
		return okStyle.Render(string(o))
	}
	return dimStyle.Render(string(o))
}

func printLogs(w io.Writer, logs []store.LogEntry) {
	if len(logs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No activity yet."))
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Time", "Event", "Page", "Profile", "Detail"})
	for _, e := range logs {
		t.AppendRow(table.Row{e.Time().Format(time.DateTime), string(e.EventType), pageLabel(e.Page), profileLabel(e), logDetail(e)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Detail", WidthMax: 60}})
	t.Render()
}

func pageLabel(p int) string {
	if p == 0 {
		return ""
	}
	return fmt.Sprint(p)
}

func profileLabel(e store.LogEntry) string {
	if e.Profile == nil {
		return ""
	}
	return e.Profile.Name
}

func logDetail(e store.LogEntry) string {
	var parts []string
	if e.Decision != "" {
		parts = append(parts, e.Decision)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	} else if e.ReasonCode != "" {
		parts = append(parts, e.ReasonCode)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.NoteUsed != nil && *e.NoteUsed {
		parts = append(parts, "with note")
	}
	return strings.Join(parts, " · ")
}

func printDebug(w io.Writer, resp engine.DebugResponse) {
	mark := okStyle.Render("ok")
	if !resp.OK {
		mark = failStyle.Render("failed")
	}
	line := mark + "  " + resp.Message
	if resp.ProfileID != "" {
		line += dimStyle.Render("  profile " + resp.ProfileID)
	}
	fmt.Fprintln(w, line)
	if len(resp.Profiles) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Title", "Location", "Mutual", "Connect"})
	for _, p := range resp.Profiles {
		connect := ""
		if p.HasConnectButton {
			connect = "yes"
		}
		t.AppendRow(table.Row{p.ProfileID, p.Name, p.Title, p.Location, p.MutualConnections, connect})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "Mutual", Align: text.AlignRight},
	})
	t.Render()
}

func printTabs(w io.Writer, resp control.TabsResponse) {
	if !resp.Connected {
		fmt.Fprintln(w, failStyle.Render("browser not connected"))
	}
	if len(resp.Sessions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No tracked tabs."))
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Session", "Status", "URL", "Last active"})
	for _, s := range resp.Sessions {
		t.AppendRow(table.Row{s.ID, s.Status, s.URL, s.LastActive.Format(time.DateTime)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "URL", WidthMax: 70}})
	t.Render()
}

func printOperations(w io.Writer, resp control.OperationsResponse) {
	for _, op := range resp.Operations {
		title := fmt.Sprintf("%s (%s)", op.Name, op.ID)
		if op.ID == resp.Selected {
			title += " *"
		}
		t := newTable(w)
		t.SetTitle(title)
		t.AppendHeader(table.Row{"Field", "Label", "Type", "Required", "Default"})
		for _, f := range op.Fields {
			required := ""
			if f.Required {
				required = "yes"
			}
			def := f.Default
			if def == nil {
				def = ""
			}
			t.AppendRow(table.Row{f.Key, f.Label, string(f.Type), required, def})
		}
		t.Render()
		if op.Description != "" {
			fmt.Fprintln(w, dimStyle.Render(op.Description))
		}
	}
}

func printConfig(w io.Writer, resp control.ConfigResponse) {
	keys := make([]string, 0, len(resp.Values))
	for k := range resp.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w)
	t.SetTitle(string(resp.OpID))
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range keys {
		v := resp.Values[k]
		if v == nil {
			v = ""
		}
		t.AppendRow(table.Row{k, v})
	}
	t.Render()
}

func printFieldErrors(w io.Writer, errs map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Problem"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, failStyle.Render(errs[k])})
	}
	t.Render()
}
