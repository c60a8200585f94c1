package job

import "strings"

// AllMinionsList returns the roster of the job as a target list.
//
// A roster of a single minion is considered trivial, it is no
// different from re-running the job on its original target.
func AllMinionsList(d *Descriptor) (string, bool) {
	if len(d.Roster) <= 1 {
		return "", false
	}
	return strings.Join(d.Roster, ","), true
}

// UnsuccessfulMinionsList returns the minions that either did not respond
// or did not succeed.
//
// The list is only offered when it contains both kinds of minions,
// otherwise one of the narrower lists suffices.
func UnsuccessfulMinionsList(d *Descriptor) (string, bool) {
	var (
		minions       []string
		hasMissing    bool
		hasNotSuccess bool
	)
	for _, id := range d.Roster {
		res, ok := d.Results[id]
		switch {
		case !ok:
			hasMissing = true
		case !res.OK():
			hasNotSuccess = true
		default:
			continue
		}
		minions = append(minions, id)
	}

	if len(minions) == 0 || !hasMissing || !hasNotSuccess {
		return "", false
	}
	return strings.Join(minions, ","), true
}

// FailedMinionsList returns the minions that responded without success.
func FailedMinionsList(d *Descriptor) (string, bool) {
	var minions []string
	for _, id := range d.Roster {
		if res, ok := d.Results[id]; ok && !res.OK() {
			minions = append(minions, id)
		}
	}

	if len(minions) == 0 {
		return "", false
	}
	return strings.Join(minions, ","), true
}

// NonRespondingMinionsList returns the minions that did not respond.
func NonRespondingMinionsList(d *Descriptor) (string, bool) {
	var minions []string
	for _, id := range d.Roster {
		if _, ok := d.Results[id]; !ok {
			minions = append(minions, id)
		}
	}

	if len(minions) == 0 {
		return "", false
	}
	return strings.Join(minions, ","), true
}
