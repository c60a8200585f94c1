// Package render renders a job view as a text panel.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/status"
)

const clearScreen = "\033[H\033[2J"

// Renderer writes job panels.
type Renderer struct {
	w      io.Writer
	live   bool
	styles styles
}

// New returns a renderer writing to w. Colours are used only when w is
// a terminal and colour is requested.
func New(w io.Writer, theme Theme, colour bool) *Renderer {
	tty := IsTerminal(w)
	return &Renderer{
		w:      w,
		live:   tty,
		styles: newStyles(theme, colour && tty),
	}
}

// NewPanel returns the panel of a job.
func (r *Renderer) NewPanel(d *job.Descriptor, highlight string) *Panel {
	p := &Panel{
		styles: r.styles,
		jid:    d.ID,
		title:  d.Title(),
		user:   d.User,
		start:  d.StartTimeText,
		notice: d.Notice.String(),
	}

	for _, row := range job.Project(d, highlight, FormatReturn) {
		p.rows = append(p.rows, &Row{panel: p, row: row})
		p.links = append(p.links, job.EmbeddedJIDs(row.Output, d.ID)...)
	}
	return p
}

// ErrorPanel returns a panel showing an error in place of a job.
func (r *Renderer) ErrorPanel(jid string, err error) *Panel {
	return &Panel{
		styles: r.styles,
		jid:    jid,
		title:  "ERROR",
		errMsg: err.Error(),
		failed: true,
	}
}

// Write writes the panel. On a terminal the previous panel is cleared.
func (r *Renderer) Write(p *Panel) error {
	out := p.Render()
	if r.live {
		out = clearScreen + out
	}

	_, err := io.WriteString(r.w, out)
	return err
}

// WriteMenu writes the menu actions as numbered salt command lines.
func (r *Renderer) WriteMenu(actions []job.Action) error {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for i, action := range actions {
		fmt.Fprintf(tw, "%d)\t%s\t%s\n", i+1, action.Label, r.styles.muted(action.Request.CLI()))
	}
	return tw.Flush()
}

// Panel is the text panel of a job. It is safe for concurrent use.
type Panel struct {
	mu     sync.Mutex
	styles styles

	jid    string
	title  string
	user   string
	start  string
	notice string
	level  status.Level

	summary string
	errMsg  string
	failed  bool

	rows  []*Row
	links []job.Link
}

// JID returns the job id of the panel.
func (p *Panel) JID() string {
	return p.jid
}

// Rows returns the minion rows of the panel.
func (p *Panel) Rows() []*Row {
	return p.rows
}

// Level returns the severity level marked on the panel.
func (p *Panel) Level() status.Level {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.level
}

// MarkSeverity marks the severity of the job.
func (p *Panel) MarkSeverity(lvl status.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = lvl
}

// ShowError shows an error in place of the job summary.
func (p *Panel) ShowError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary = "(error)"
	p.errMsg = msg
}

// ShowLoading shows the run state of the job is being fetched.
func (p *Panel) ShowLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary = "(loading)"
	p.errMsg = ""
}

// ShowDone shows the job is done.
func (p *Panel) ShowDone() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary = "done"
	p.errMsg = ""
}

// ShowRunning shows the number of processes still running the job.
func (p *Panel) ShowRunning(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary = strconv.Itoa(n) + " active"
	p.errMsg = ""
}

// Render renders the panel as text.
func (p *Panel) Render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer

	title := p.title
	if p.failed {
		title = p.styles.forLevel(status.Failed)(title)
	} else {
		title = p.styles.forLevel(p.level)(title)
	}
	buf.WriteString(title + "\n")

	if p.failed {
		buf.WriteString(p.errMsg + "\n")
		return buf.String()
	}

	meta := []string{p.jid}
	if p.user != "" {
		meta = append(meta, "by "+p.user)
	}
	if p.start != "" {
		meta = append(meta, "at "+p.start)
	}
	buf.WriteString(p.styles.muted(strings.Join(meta, " ")) + "\n")

	if p.notice != "" {
		buf.WriteString(p.notice + "\n")
	}
	if p.summary != "" {
		summary := p.summary
		if p.errMsg != "" {
			summary += " " + p.errMsg
		}
		buf.WriteString(summary + "\n")
	}
	buf.WriteString("\n")

	var details []*Row
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", "MINION", "STATE", "OUTPUT")
	for _, row := range p.rows {
		output, multi := firstLine(row.row.Output)
		if multi {
			details = append(details, row)
		}

		minion := row.row.Minion
		if row.row.Highlight {
			minion = "*" + minion
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", minion, row.stateText(), p.styles.forLevel(row.level())(output))
	}
	_ = tw.Flush()

	for _, row := range details {
		buf.WriteString("\n" + row.row.Minion + ":\n")
		for _, line := range strings.Split(row.row.Output, "\n") {
			buf.WriteString("    " + line + "\n")
		}
	}

	if len(p.links) > 0 {
		buf.WriteString("\nLinked jobs:\n")
		for _, link := range p.links {
			text := link.JID
			if link.Self {
				text += " (this job)"
			}
			buf.WriteString("    " + text + "\n")
		}
	}
	return buf.String()
}

func firstLine(s string) (string, bool) {
	idx := strings.IndexByte(s, '\n')
	if idx < 0 {
		return s, false
	}
	return s[:idx] + " ...", true
}

// Row is a minion row of a panel.
type Row struct {
	panel *Panel
	row   job.Row

	pid     int
	actions []job.Action
}

// Minion returns the minion id of the row.
func (r *Row) Minion() string {
	return r.row.Minion
}

// Responded determines if the minion returned a result.
func (r *Row) Responded() bool {
	return r.row.Responded
}

// Actions returns the process actions of the row, if it is active.
func (r *Row) Actions() []job.Action {
	r.panel.mu.Lock()
	defer r.panel.mu.Unlock()

	return r.actions
}

// MarkActive marks the minion as still running the job.
func (r *Row) MarkActive(pid int, actions []job.Action) {
	r.panel.mu.Lock()
	defer r.panel.mu.Unlock()

	r.pid = pid
	r.actions = actions
}

func (r *Row) stateText() string {
	switch {
	case r.row.Responded && r.row.OK:
		return "ok"
	case r.row.Responded:
		return "failed"
	case r.pid != 0:
		return "active (pid " + strconv.Itoa(r.pid) + ")"
	default:
		return "no response yet"
	}
}

func (r *Row) level() status.Level {
	switch {
	case !r.row.Responded:
		return status.Unknown
	case r.row.OK:
		return status.Success
	default:
		return status.Failed
	}
}
