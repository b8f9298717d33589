package resolve

import (
	"testing"

	"remindgate/internal/fault"
	"remindgate/internal/remindctl"
)

func TestMatchID(t *testing.T) {
	ids := []string{"AB12-CD34", "AB12-EF56", "XY99-ZZ00"}

	tests := []struct {
		name       string
		ref        string
		wantKind   MatchKind
		wantID     string
		candidates int
	}{
		{name: "exact match wins", ref: "AB12-CD34", wantKind: MatchUnique, wantID: "AB12-CD34"},
		{name: "unique prefix", ref: "XY99", wantKind: MatchUnique, wantID: "XY99-ZZ00"},
		{name: "unique prefix case insensitive", ref: "xy99-z", wantKind: MatchUnique, wantID: "XY99-ZZ00"},
		{name: "shared prefix is ambiguous", ref: "AB12", wantKind: MatchAmbiguous, candidates: 2},
		{name: "longer prefix disambiguates", ref: "AB12-C", wantKind: MatchUnique, wantID: "AB12-CD34"},
		{name: "no match", ref: "QQ77", wantKind: MatchNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchID(ids, tt.ref)
			if m.Kind != tt.wantKind {
				t.Fatalf("MatchID(%q).Kind = %v, want %v", tt.ref, m.Kind, tt.wantKind)
			}
			if m.ID != tt.wantID {
				t.Fatalf("MatchID(%q).ID = %q, want %q", tt.ref, m.ID, tt.wantID)
			}
			if len(m.Candidates) != tt.candidates {
				t.Fatalf("MatchID(%q) candidates = %v, want %d", tt.ref, m.Candidates, tt.candidates)
			}
		})
	}
}

func TestMatchIDExactBeatsPrefixAmbiguity(t *testing.T) {
	// An exact full id must resolve even when it is also a prefix of
	// another id.
	ids := []string{"AB12", "AB12-CD34"}
	m := MatchID(ids, "AB12")
	if m.Kind != MatchUnique || m.ID != "AB12" {
		t.Fatalf("MatchID = %+v, want unique AB12", m)
	}
}

func reminderSet(ids ...string) []remindctl.Reminder {
	out := make([]remindctl.Reminder, len(ids))
	for i, id := range ids {
		out[i] = remindctl.Reminder{ID: id, Title: "r-" + id}
	}
	return out
}

func TestReminderRefsStrict(t *testing.T) {
	reminders := reminderSet("AB12-CD34", "AB12-EF56", "XY99-ZZ00")

	resolved, err := ReminderRefs(reminders, []string{"AB12-C", "xy99"})
	if err != nil {
		t.Fatalf("ReminderRefs: %v", err)
	}
	if len(resolved) != 2 || resolved[0] != "AB12-CD34" || resolved[1] != "XY99-ZZ00" {
		t.Fatalf("resolved = %v", resolved)
	}
}

func TestReminderRefsAmbiguousCarriesCandidates(t *testing.T) {
	reminders := reminderSet("AB12-CD34", "AB12-EF56")

	_, err := ReminderRefs(reminders, []string{"AB12"})
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if fault.KindOf(err) != fault.KindAmbiguous {
		t.Fatalf("kind = %v, want ambiguous", fault.KindOf(err))
	}
	candidates := fault.CandidatesOf(err)
	if len(candidates) != 2 {
		t.Fatalf("candidates = %v, want both full ids", candidates)
	}
}

func TestReminderRefsRejectsBadRefs(t *testing.T) {
	reminders := reminderSet("AB12-CD34")

	tests := []struct {
		name string
		ref  string
	}{
		{name: "empty", ref: ""},
		{name: "all digits looks like index", ref: "3"},
		{name: "long digit run still rejected", ref: "123456"},
		{name: "too short", ref: "AB1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReminderRefs(reminders, []string{tt.ref})
			if err == nil {
				t.Fatalf("ReminderRefs(%q) should fail", tt.ref)
			}
			if fault.KindOf(err) != fault.KindInvalidInput {
				t.Fatalf("kind = %v, want invalid_input", fault.KindOf(err))
			}
		})
	}
}

func TestReminderRefsNotFound(t *testing.T) {
	_, err := ReminderRefs(reminderSet("AB12-CD34"), []string{"QQ77-RR88"})
	if fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("kind = %v, want not_found", fault.KindOf(err))
	}
}

func TestReminderRefsLenient(t *testing.T) {
	reminders := reminderSet("AB12-CD34", "XY99-ZZ00")

	res, err := ReminderRefsLenient(reminders, []string{"AB12-C", "GONE-REF1", "xy99"})
	if err != nil {
		t.Fatalf("ReminderRefsLenient: %v", err)
	}
	if len(res.ResolvedIDs) != 2 {
		t.Fatalf("resolved = %v", res.ResolvedIDs)
	}
	if len(res.MissingRefs) != 1 || res.MissingRefs[0] != "GONE-REF1" {
		t.Fatalf("missing = %v", res.MissingRefs)
	}
}

func TestReminderRefsLenientStillFailsAmbiguity(t *testing.T) {
	reminders := reminderSet("AB12-CD34", "AB12-EF56")

	_, err := ReminderRefsLenient(reminders, []string{"AB12"})
	if fault.KindOf(err) != fault.KindAmbiguous {
		t.Fatalf("kind = %v, want ambiguous", fault.KindOf(err))
	}
}

func listSet() []remindctl.List {
	return []remindctl.List{
		{ID: "LIST-AAAA", Title: "Groceries"},
		{ID: "LIST-BBBB", Title: "Work"},
		{ID: "LIST-CCCC", Title: "Reminders"},
	}
}

func TestListRef(t *testing.T) {
	lists := listSet()

	tests := []struct {
		name     string
		ref      string
		wantID   string
		wantKind fault.Kind
	}{
		{name: "by id", ref: "LIST-AAAA", wantID: "LIST-AAAA"},
		{name: "by unique id prefix", ref: "LIST-B", wantID: "LIST-BBBB"},
		{name: "by exact name", ref: "Groceries", wantID: "LIST-AAAA"},
		{name: "shared id prefix ambiguous", ref: "LIST", wantKind: fault.KindAmbiguous},
		{name: "unknown", ref: "Errands", wantKind: fault.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ListRef(lists, tt.ref)
			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("ListRef(%q) should fail", tt.ref)
				}
				if fault.KindOf(err) != tt.wantKind {
					t.Fatalf("kind = %v, want %v", fault.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListRef(%q): %v", tt.ref, err)
			}
			if list.ID != tt.wantID {
				t.Fatalf("ListRef(%q) = %q, want %q", tt.ref, list.ID, tt.wantID)
			}
		})
	}
}

func TestListRefDuplicateNames(t *testing.T) {
	lists := []remindctl.List{
		{ID: "LIST-AAAA", Title: "Errands"},
		{ID: "LIST-BBBB", Title: "Errands"},
	}
	_, err := ListRef(lists, "Errands")
	if fault.KindOf(err) != fault.KindAmbiguous {
		t.Fatalf("kind = %v, want ambiguous", fault.KindOf(err))
	}
	if len(fault.CandidatesOf(err)) != 2 {
		t.Fatalf("candidates = %v", fault.CandidatesOf(err))
	}
}

func TestListSelector(t *testing.T) {
	lists := listSet()

	tests := []struct {
		name     string
		listID   string
		listName string
		want     string
		wantErr  bool
	}{
		{name: "neither", want: ""},
		{name: "id only", listID: "LIST-AAAA", want: "Groceries"},
		{name: "name only passes through", listName: "Someday", want: "Someday"},
		{name: "both agreeing", listID: "LIST-AAAA", listName: "Groceries", want: "Groceries"},
		{name: "both disagreeing", listID: "LIST-AAAA", listName: "Work", wantErr: true},
		{name: "unknown id", listID: "LIST-ZZZZ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListSelector(lists, tt.listID, tt.listName)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ListSelector: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ListSelector = %q, want %q", got, tt.want)
			}
		})
	}
}
