package job

import "sort"

// Formatter formats an arbitrary minion return value as display text.
type Formatter func(v interface{}) string

// Row is the display copy of a minion in a job.
type Row struct {
	Minion    string
	Responded bool
	OK        bool
	Output    string
	Highlight bool
}

// Project returns the rows to display for a job. The descriptor is not
// modified. Minions that returned a result without being part of the
// roster are shown after the roster.
func Project(d *Descriptor, highlight string, format Formatter) []Row {
	minions := d.Minions()
	if d.Kind == KindWheel || d.Kind == KindRunner {
		if extra := resultKeys(d.Results); len(extra) > 0 {
			minions = extra
		}
	}

	seen := make(map[string]bool, len(minions))
	rows := make([]Row, 0, len(minions))
	for _, id := range minions {
		seen[id] = true
		rows = append(rows, projectRow(d, id, highlight, format))
	}
	for _, id := range resultKeys(d.Results) {
		if seen[id] {
			continue
		}
		rows = append(rows, projectRow(d, id, highlight, format))
	}
	return rows
}

func projectRow(d *Descriptor, id, highlight string, format Formatter) Row {
	row := Row{Minion: id, Highlight: id != "" && id == highlight}

	res, ok := d.Results[id]
	if !ok {
		return row
	}

	row.Responded = true
	row.OK = res.OK()
	if format != nil {
		row.Output = format(res.Return)
	}
	return row
}

func resultKeys(results map[string]Result) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Link is a reference to a job found in minion output.
type Link struct {
	JID  string
	Self bool
}

// EmbeddedJIDs returns the job ids referenced in text, in order of
// first appearance. References to self are marked.
func EmbeddedJIDs(text, self string) []Link {
	matches := embeddedJIDRegexp.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	links := make([]Link, 0, len(matches))
	for _, jid := range matches {
		if seen[jid] {
			continue
		}
		seen[jid] = true
		links = append(links, Link{JID: jid, Self: jid == self})
	}
	return links
}
