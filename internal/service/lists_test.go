package service

import (
	"context"
	"testing"

	"remindgate/internal/fault"
	"remindgate/internal/remindctl"
)

func TestListCreate(t *testing.T) {
	runner := healthyRunner()
	svc := newTestService(runner)

	// The create verb emits nothing; the refetched list set reports it.
	runner.lists = append(runner.lists, remindctl.List{ID: "LIST-DDDD", Title: "Errands"})
	list, ack, err := svc.ListCreate(context.Background(), ListCreateInput{Name: "Errands"})
	if err != nil || ack != nil {
		t.Fatalf("ListCreate: ack=%+v err=%v", ack, err)
	}
	if list.ID != "LIST-DDDD" {
		t.Fatalf("list = %+v", list)
	}

	calls := runner.callsWithVerb("list")
	creating := false
	for _, call := range calls {
		if len(call) >= 3 && call[1] == "Errands" && call[2] == "--create" {
			creating = true
		}
	}
	if !creating {
		t.Fatalf("list calls %v missing create invocation", calls)
	}
}

func TestListCreateRejectsControlChars(t *testing.T) {
	runner := healthyRunner()
	svc := newTestService(runner)

	_, _, err := svc.ListCreate(context.Background(), ListCreateInput{Name: "bad\nname"})
	if fault.KindOf(err) != fault.KindInvalidInput {
		t.Fatalf("kind = %v, want invalid_input", fault.KindOf(err))
	}
	if len(runner.calls) != 0 {
		t.Fatalf("calls = %v, want none before validation", runner.calls)
	}
}

func TestListRenameResolvesByPrefix(t *testing.T) {
	runner := healthyRunner()
	svc := newTestService(runner)

	runner.lists[1].Title = "Projects"
	list, ack, err := svc.ListRename(context.Background(), ListRenameInput{Ref: "LIST-B", NewName: "Projects"})
	if err != nil || ack != nil {
		t.Fatalf("ListRename: ack=%+v err=%v", ack, err)
	}
	if list.ID != "LIST-BBBB" || list.Title != "Projects" {
		t.Fatalf("list = %+v", list)
	}
}

func TestListRenameAmbiguousRef(t *testing.T) {
	runner := healthyRunner()
	svc := newTestService(runner)

	_, _, err := svc.ListRename(context.Background(), ListRenameInput{Ref: "LIST", NewName: "Anything"})
	if fault.KindOf(err) != fault.KindAmbiguous {
		t.Fatalf("kind = %v, want ambiguous", fault.KindOf(err))
	}
}

func TestListDelete(t *testing.T) {
	runner := healthyRunner()
	svc := newTestService(runner)

	res, ack, err := svc.ListDelete(context.Background(), ListDeleteInput{Ref: "Groceries"})
	if err != nil || ack != nil {
		t.Fatalf("ListDelete: ack=%+v err=%v", ack, err)
	}
	if !res.Deleted {
		t.Fatalf("res = %+v", res)
	}

	found := false
	for _, call := range runner.callsWithVerb("list") {
		if len(call) >= 4 && call[1] == "Groceries" && call[2] == "--delete" && call[3] == "--force" {
			found = true
		}
	}
	if !found {
		t.Fatal("delete invocation missing --force")
	}
}

func TestListDeleteUnknown(t *testing.T) {
	svc := newTestService(healthyRunner())

	_, _, err := svc.ListDelete(context.Background(), ListDeleteInput{Ref: "Nonexistent"})
	if fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("kind = %v, want not_found", fault.KindOf(err))
	}
}

func TestListMutationsQueueWhenDown(t *testing.T) {
	runner := healthyRunner()
	runner.statusErr = fault.Unavailable("remindctl gone", nil)
	svc := newTestService(runner)

	_, ack, err := svc.ListCreate(context.Background(), ListCreateInput{Name: "Errands"})
	if err != nil {
		t.Fatalf("ListCreate: %v", err)
	}
	if ack == nil || ack.Op != OpListCreate {
		t.Fatalf("ack = %+v", ack)
	}
}
