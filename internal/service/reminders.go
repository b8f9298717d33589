package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"remindgate/internal/fault"
	"remindgate/internal/pending"
	"remindgate/internal/remindctl"
	"remindgate/internal/resolve"
)

const (
	maxTitleLen    = 300
	maxNotesLen    = 4000
	maxListNameLen = 120
)

// Reminders is the primary read operation. An omitted filter means
// pending-only; pending/incomplete are served from "show all" with
// completed entries filtered here because remindctl has no pending verb.
func (s *Service) Reminders(ctx context.Context, input RemindersInput) ([]remindctl.Reminder, error) {
	listName, err := s.listSelector(ctx, input.ListID, input.ListName)
	if err != nil {
		return nil, err
	}

	filter := strings.TrimSpace(input.Filter)
	if filter == "" {
		filter = "pending"
	}
	pendingMode := false
	switch strings.ToLower(filter) {
	case "pending", "incomplete":
		pendingMode = true
	}

	args := []string{"show"}
	if pendingMode {
		args = append(args, "all")
	} else {
		args = append(args, filter)
	}
	if listName != "" {
		args = append(args, "--list", listName)
	}

	var reminders []remindctl.Reminder
	if err := s.runner.ReadJSON(ctx, args, &reminders); err != nil {
		return nil, err
	}

	if pendingMode && !input.IncludeCompleted {
		kept := reminders[:0]
		for _, rem := range reminders {
			if !rem.IsCompleted {
				kept = append(kept, rem)
			}
		}
		reminders = kept
	}
	return reminders, nil
}

// RemindersByFilter serves the resource templates: raw filter, optional
// list scope, no pending-mode rewriting.
func (s *Service) RemindersByFilter(ctx context.Context, filter, listName string) ([]remindctl.Reminder, error) {
	args := []string{"show", filter}
	if listName != "" {
		args = append(args, "--list", listName)
	}
	var reminders []remindctl.Reminder
	if err := s.runner.ReadJSON(ctx, args, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// ReminderByRef fetches one reminder by id or unique id prefix.
func (s *Service) ReminderByRef(ctx context.Context, ref string) (remindctl.Reminder, error) {
	all, err := s.fetchAllReminders(ctx)
	if err != nil {
		return remindctl.Reminder{}, err
	}
	resolved, err := resolve.ReminderRefs(all, []string{ref})
	if err != nil {
		return remindctl.Reminder{}, err
	}
	for _, rem := range all {
		if rem.ID == resolved[0] {
			return rem, nil
		}
	}
	return remindctl.Reminder{}, fault.NotFound("reminder %q not found", ref)
}

func (s *Service) listSelector(ctx context.Context, listID, listName string) (string, error) {
	if listID == "" && listName == "" {
		return "", nil
	}
	lists, err := s.fetchLists(ctx)
	if err != nil {
		return "", err
	}
	return resolve.ListSelector(lists, listID, listName)
}

// deferAction queues a validated write for later replay. Appending is a
// single local storage write; it never touches the backend.
func (s *Service) deferAction(op string, input any) (*QueuedAck, error) {
	args, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	action := pending.NewAction(op, args, s.now())
	if err := s.store.Append(action); err != nil {
		return nil, err
	}
	s.logger.Info("write_deferred", slog.String("op", op), slog.String("action_id", action.ID))
	return &QueuedAck{Queued: true, ActionID: action.ID, Op: op}, nil
}

func validateAddInput(input AddInput) error {
	if err := remindctl.ValidateText(input.Title, "title", maxTitleLen); err != nil {
		return err
	}
	if input.Notes != "" {
		if err := remindctl.ValidateText(input.Notes, "notes", maxNotesLen); err != nil {
			return err
		}
	}
	return nil
}

// Add creates a reminder. It is exempt from reference resolution: there
// is no existing target. Returns a QueuedAck instead of a Reminder when
// the backend is unavailable.
func (s *Service) Add(ctx context.Context, input AddInput) (remindctl.Reminder, *QueuedAck, error) {
	if err := validateAddInput(input); err != nil {
		return remindctl.Reminder{}, nil, err
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpReminderAdd, input)
		return remindctl.Reminder{}, ack, err
	}
	rem, err := s.add(ctx, input)
	return rem, nil, err
}

func (s *Service) add(ctx context.Context, input AddInput) (remindctl.Reminder, error) {
	if err := validateAddInput(input); err != nil {
		return remindctl.Reminder{}, err
	}

	lists, err := s.fetchLists(ctx)
	if err != nil {
		return remindctl.Reminder{}, err
	}
	listName, err := resolve.ListSelector(lists, input.ListID, input.ListName)
	if err != nil {
		return remindctl.Reminder{}, err
	}
	if listName == "" {
		titles := make([]string, len(lists))
		for i, l := range lists {
			titles[i] = l.Title
		}
		listName = resolve.InferListName(titles, input.Title, input.Notes)
	}

	args := []string{"add", "--title", input.Title}
	if listName != "" {
		args = append(args, "--list", listName)
	}
	if input.Due != "" {
		args = append(args, "--due", input.Due)
	}
	if input.Notes != "" {
		args = append(args, "--notes", input.Notes)
	}
	if input.Priority != "" {
		args = append(args, "--priority", input.Priority)
	}

	var rem remindctl.Reminder
	if err := s.runner.WriteJSON(ctx, args, &rem); err != nil {
		return remindctl.Reminder{}, err
	}
	s.setRecent(rem.ID)
	return rem, nil
}

// Edit updates one reminder selected by id or unique id prefix.
func (s *Service) Edit(ctx context.Context, input EditInput) (remindctl.Reminder, *QueuedAck, error) {
	if err := validateEditInput(input); err != nil {
		return remindctl.Reminder{}, nil, err
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpReminderEdit, input)
		return remindctl.Reminder{}, ack, err
	}
	rem, err := s.edit(ctx, input)
	return rem, nil, err
}

func validateEditInput(input EditInput) error {
	if strings.TrimSpace(input.Ref) == "" {
		return fault.Invalid("reminderId is required")
	}
	if input.Title != "" {
		if err := remindctl.ValidateText(input.Title, "title", maxTitleLen); err != nil {
			return err
		}
	}
	if input.Notes != "" {
		if err := remindctl.ValidateText(input.Notes, "notes", maxNotesLen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) edit(ctx context.Context, input EditInput) (remindctl.Reminder, error) {
	if err := validateEditInput(input); err != nil {
		return remindctl.Reminder{}, err
	}

	all, err := s.fetchAllReminders(ctx)
	if err != nil {
		return remindctl.Reminder{}, err
	}
	resolved, err := resolve.ReminderRefs(all, []string{input.Ref})
	if err != nil {
		return remindctl.Reminder{}, err
	}

	listName, err := s.listSelector(ctx, input.ListID, input.ListName)
	if err != nil {
		return remindctl.Reminder{}, err
	}

	args := []string{"edit", resolved[0]}
	if input.Title != "" {
		args = append(args, "--title", input.Title)
	}
	if listName != "" {
		args = append(args, "--list", listName)
	}
	if input.Due != "" {
		args = append(args, "--due", input.Due)
	}
	if input.ClearDue {
		args = append(args, "--clear-due")
	}
	if input.Notes != "" {
		args = append(args, "--notes", input.Notes)
	}
	if input.Priority != "" {
		args = append(args, "--priority", input.Priority)
	}
	if input.Complete != nil {
		if *input.Complete {
			args = append(args, "--complete")
		} else {
			args = append(args, "--incomplete")
		}
	}

	var rem remindctl.Reminder
	if err := s.runner.WriteJSON(ctx, args, &rem); err != nil {
		return remindctl.Reminder{}, err
	}
	s.setRecent(rem.ID)
	return rem, nil
}

// Complete marks one or more reminders complete. Every reference must
// resolve to exactly one target or the whole call fails with no
// mutation.
func (s *Service) Complete(ctx context.Context, input CompleteInput) ([]remindctl.Reminder, *QueuedAck, error) {
	refs := gatherRefs(input.Refs, input.Ref)
	if len(refs) == 0 {
		return nil, nil, fault.Invalid("reminderIds or reminderId is required")
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpReminderComplete, input)
		return nil, ack, err
	}
	out, err := s.complete(ctx, input)
	return out, nil, err
}

func (s *Service) complete(ctx context.Context, input CompleteInput) ([]remindctl.Reminder, error) {
	refs := gatherRefs(input.Refs, input.Ref)
	if len(refs) == 0 {
		return nil, fault.Invalid("reminderIds or reminderId is required")
	}

	all, err := s.fetchAllReminders(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := resolve.ReminderRefs(all, refs)
	if err != nil {
		return nil, err
	}

	args := append([]string{"complete"}, resolved...)
	if input.DryRun {
		args = append(args, "--dry-run")
	}

	var reminders []remindctl.Reminder
	if err := s.runner.WriteJSON(ctx, args, &reminders); err != nil {
		return nil, err
	}
	if !input.DryRun {
		s.setRecent(resolved[len(resolved)-1])
	}
	return reminders, nil
}

// Delete removes reminders with a relaxed, idempotent-friendly contract:
// already-missing refs are reported rather than failed (unless
// allowMissing=false), and an empty reference set falls back to the
// session's most recently touched target.
func (s *Service) Delete(ctx context.Context, input DeleteInput) (DeleteResult, *QueuedAck, error) {
	refs := gatherRefs(input.Refs, input.Ref)
	usedRecent := false
	if len(refs) == 0 {
		if recent := s.recentRef(); recent != "" {
			refs = []string{recent}
			usedRecent = true
		}
	}
	if len(refs) == 0 {
		return DeleteResult{}, nil, fault.Invalid("reminderIds or reminderId is required when there is no recent reminder context")
	}

	if !s.backendAvailable(ctx) {
		// Queue the concrete refs: session memory will not be there at
		// replay time.
		queued := input
		queued.Refs = refs
		queued.Ref = ""
		ack, err := s.deferAction(OpReminderDelete, queued)
		return DeleteResult{}, ack, err
	}

	out, err := s.deleteRefs(ctx, input, refs, usedRecent)
	return out, nil, err
}

func (s *Service) delete(ctx context.Context, input DeleteInput) (DeleteResult, error) {
	refs := gatherRefs(input.Refs, input.Ref)
	if len(refs) == 0 {
		return DeleteResult{}, fault.Invalid("reminderIds or reminderId is required")
	}
	return s.deleteRefs(ctx, input, refs, false)
}

func (s *Service) deleteRefs(ctx context.Context, input DeleteInput, refs []string, usedRecent bool) (DeleteResult, error) {
	all, err := s.fetchAllReminders(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := resolve.ReminderRefsLenient(all, refs)
	if err != nil {
		return DeleteResult{}, err
	}

	allowMissing := true
	if input.AllowMissing != nil {
		allowMissing = *input.AllowMissing
	}

	if len(res.ResolvedIDs) == 0 {
		if allowMissing {
			return DeleteResult{
				DeletedIDs:          []string{},
				DeletedReminders:    []remindctl.Reminder{},
				AlreadyAbsentRefs:   res.MissingRefs,
				UsedRecentReference: usedRecent,
				Message:             "nothing to delete; all refs already absent",
			}, nil
		}
		return DeleteResult{}, fault.NotFound("none of the provided reminder refs exist")
	}

	args := append([]string{"delete"}, res.ResolvedIDs...)
	if input.DryRun {
		args = append(args, "--dry-run")
	} else {
		args = append(args, "--force")
	}

	var deleted []remindctl.Reminder
	if err := s.runner.WriteJSON(ctx, args, &deleted); err != nil {
		return DeleteResult{}, err
	}
	if !input.DryRun {
		s.clearRecentIf(res.ResolvedIDs)
	}

	absent := res.MissingRefs
	if absent == nil {
		absent = []string{}
	}
	return DeleteResult{
		DeletedIDs:          res.ResolvedIDs,
		DeletedReminders:    deleted,
		AlreadyAbsentRefs:   absent,
		UsedRecentReference: usedRecent,
		Message:             "deletion applied",
	}, nil
}

func gatherRefs(refs []string, single string) []string {
	out := make([]string, 0, len(refs)+1)
	for _, ref := range refs {
		if strings.TrimSpace(ref) != "" {
			out = append(out, ref)
		}
	}
	if strings.TrimSpace(single) != "" {
		out = append(out, single)
	}
	return out
}
