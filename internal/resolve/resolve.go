// Package resolve maps caller-supplied references (full identifiers,
// identifier prefixes, or display names) to unique canonical identifiers
// using only read-side data. Positional/index references are rejected at
// this boundary: list order is not stable between queries, so an index is
// never a valid selector.
package resolve

import (
	"strings"

	"remindgate/internal/fault"
	"remindgate/internal/remindctl"
)

// minRefLen guards short prefixes that would match too eagerly.
const minRefLen = 4

type MatchKind int

const (
	MatchNotFound MatchKind = iota
	MatchUnique
	MatchAmbiguous
)

// Match is the tagged outcome of resolving one reference. Callers must
// branch on all three kinds; the resolver never picks among multiple
// candidates on their behalf.
type Match struct {
	Kind       MatchKind
	ID         string
	Candidates []string
}

// MatchID resolves ref against the set of canonical identifiers: an exact
// case-sensitive full-length match wins immediately, otherwise ref is
// treated as a case-insensitive prefix and the zero/one/many trichotomy
// applies.
func MatchID(ids []string, ref string) Match {
	for _, id := range ids {
		if id == ref {
			return Match{Kind: MatchUnique, ID: id}
		}
	}

	lowered := strings.ToLower(ref)
	var candidates []string
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), lowered) {
			candidates = append(candidates, id)
		}
	}
	switch len(candidates) {
	case 0:
		return Match{Kind: MatchNotFound}
	case 1:
		return Match{Kind: MatchUnique, ID: candidates[0]}
	default:
		return Match{Kind: MatchAmbiguous, Candidates: candidates}
	}
}

func checkRef(ref string) error {
	if ref == "" {
		return fault.Invalid("reference cannot be empty")
	}
	allDigits := true
	for _, ch := range ref {
		if ch < '0' || ch > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return fault.Invalid("ref %q looks like an index; provide an id, unique id prefix, or name", ref)
	}
	if len(ref) < minRefLen {
		return fault.Invalid("ref %q is too short, use at least %d characters", ref, minRefLen)
	}
	return nil
}

// ReminderRefs resolves each reference strictly: every ref must resolve
// to exactly one reminder identifier or the whole call fails.
func ReminderRefs(reminders []remindctl.Reminder, refs []string) ([]string, error) {
	ids := make([]string, len(reminders))
	for i, rem := range reminders {
		ids[i] = rem.ID
	}

	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		if err := checkRef(ref); err != nil {
			return nil, err
		}
		switch m := MatchID(ids, ref); m.Kind {
		case MatchUnique:
			resolved = append(resolved, m.ID)
		case MatchAmbiguous:
			return nil, fault.Ambiguous("reminder ref "+ref+" is ambiguous", m.Candidates)
		default:
			return nil, fault.NotFound("reminder ref %q not found", ref)
		}
	}
	return resolved, nil
}

// Resolution is the outcome of lenient reminder resolution: refs that
// matched nothing are collected instead of failing the call. Ambiguity is
// still an error; a missing target is tolerable, a guessed one is not.
type Resolution struct {
	ResolvedIDs []string
	MissingRefs []string
}

func ReminderRefsLenient(reminders []remindctl.Reminder, refs []string) (Resolution, error) {
	ids := make([]string, len(reminders))
	for i, rem := range reminders {
		ids[i] = rem.ID
	}

	var res Resolution
	for _, ref := range refs {
		if err := checkRef(ref); err != nil {
			return Resolution{}, err
		}
		switch m := MatchID(ids, ref); m.Kind {
		case MatchUnique:
			res.ResolvedIDs = append(res.ResolvedIDs, m.ID)
		case MatchAmbiguous:
			return Resolution{}, fault.Ambiguous("reminder ref "+ref+" is ambiguous", m.Candidates)
		default:
			res.MissingRefs = append(res.MissingRefs, ref)
		}
	}
	return res, nil
}

// ListRef resolves a single list reference against identifiers first and
// falls back to exact display-name matching. Returns the list's display
// name, which is what remindctl takes on its --list flag.
func ListRef(lists []remindctl.List, ref string) (remindctl.List, error) {
	if ref == "" {
		return remindctl.List{}, fault.Invalid("list reference cannot be empty")
	}

	ids := make([]string, len(lists))
	byID := make(map[string]remindctl.List, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
		byID[l.ID] = l
	}

	switch m := MatchID(ids, ref); m.Kind {
	case MatchUnique:
		return byID[m.ID], nil
	case MatchAmbiguous:
		return remindctl.List{}, fault.Ambiguous("list ref "+ref+" is ambiguous", m.Candidates)
	}

	// Name fallback: exact match on the display name, same trichotomy.
	var candidates []remindctl.List
	for _, l := range lists {
		if l.Title == ref {
			candidates = append(candidates, l)
		}
	}
	switch len(candidates) {
	case 0:
		return remindctl.List{}, fault.NotFound("list ref %q not found", ref)
	case 1:
		return candidates[0], nil
	default:
		ids := make([]string, len(candidates))
		for i, l := range candidates {
			ids[i] = l.ID
		}
		return remindctl.List{}, fault.Ambiguous("list name "+ref+" matches multiple lists", ids)
	}
}

// ListSelector resolves the listId/listName input pair used by reminder
// operations. When both are present they must agree; when only an id is
// present it must exist; a bare name is validated and passed through for
// remindctl to resolve at mutation time.
func ListSelector(lists []remindctl.List, listID, listName string) (string, error) {
	switch {
	case listID != "" && listName != "":
		list, err := ListRef(lists, listID)
		if err != nil {
			return "", err
		}
		if list.Title != listName {
			return "", fault.Invalid("listId and listName refer to different lists")
		}
		return listName, nil
	case listID != "":
		list, err := ListRef(lists, listID)
		if err != nil {
			return "", err
		}
		return list.Title, nil
	case listName != "":
		if err := remindctl.ValidateText(listName, "listName", 120); err != nil {
			return "", err
		}
		return listName, nil
	default:
		return "", nil
	}
}
