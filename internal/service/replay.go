package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"remindgate/internal/fault"
	"remindgate/internal/pending"
)

// Queue operation names. These are the wire vocabulary of pending
// actions and must stay stable across releases.
const (
	OpReminderAdd      = "reminder_add"
	OpReminderEdit     = "reminder_edit"
	OpReminderComplete = "reminder_complete"
	OpReminderDelete   = "reminder_delete"
	OpListCreate       = "list_create"
	OpListRename       = "list_rename"
	OpListDelete       = "list_delete"
)

// Pending lists the queued actions in replay order.
func (s *Service) Pending() ([]pending.Action, error) {
	return s.store.List()
}

// ProcessPending replays the given actions in order. Replay calls the
// core operations directly, bypassing the availability gate: a
// still-down backend must fail the action, not re-queue it. With
// stopOnError, the remaining actions after the first failure are
// reported as skipped so the batch accounting stays complete.
func (s *Service) ProcessPending(ctx context.Context, actions []pending.Action, stopOnError bool) BatchResult {
	batch := BatchResult{Results: make([]ActionResult, 0, len(actions))}
	halted := false
	for _, action := range actions {
		if halted {
			batch.Skipped++
			batch.Results = append(batch.Results, ActionResult{
				ID:     action.ID,
				Op:     action.Op,
				Status: ActionSkipped,
				Reason: "skipped after earlier failure",
			})
			continue
		}

		batch.Processed++
		data, err := s.replayOne(ctx, action)
		if err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, ActionResult{
				ID:     action.ID,
				Op:     action.Op,
				Status: ActionFailed,
				Error:  failureFrom(err),
			})
			s.logger.Warn("pending_action_failed",
				slog.String("action_id", action.ID),
				slog.String("op", action.Op),
				slog.String("error", err.Error()))
			if stopOnError {
				halted = true
			}
			continue
		}

		batch.Succeeded++
		batch.Results = append(batch.Results, ActionResult{
			ID:     action.ID,
			Op:     action.Op,
			Status: ActionApplied,
			Data:   data,
		})
	}
	return batch
}

// DrainPending replays the service's own queue with store bookkeeping:
// applied actions are removed, failed ones stay with attempts bumped,
// skipped ones are left untouched for the next drain.
func (s *Service) DrainPending(ctx context.Context, stopOnError bool) (BatchResult, error) {
	actions, err := s.store.List()
	if err != nil {
		return BatchResult{}, err
	}
	batch := s.ProcessPending(ctx, actions, stopOnError)
	for _, res := range batch.Results {
		switch res.Status {
		case ActionApplied:
			if err := s.store.Remove(res.ID); err != nil && err != pending.ErrNotFound {
				return batch, err
			}
		case ActionFailed:
			msg := ""
			if res.Error != nil {
				msg = res.Error.Message
			}
			if err := s.store.RecordFailure(res.ID, msg); err != nil && err != pending.ErrNotFound {
				return batch, err
			}
		}
	}
	return batch, nil
}

func (s *Service) replayOne(ctx context.Context, action pending.Action) (any, error) {
	switch action.Op {
	case OpReminderAdd:
		var input AddInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.add(ctx, input)
	case OpReminderEdit:
		var input EditInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.edit(ctx, input)
	case OpReminderComplete:
		var input CompleteInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.complete(ctx, input)
	case OpReminderDelete:
		var input DeleteInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.delete(ctx, input)
	case OpListCreate:
		var input ListCreateInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.listCreate(ctx, input)
	case OpListRename:
		var input ListRenameInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.listRename(ctx, input)
	case OpListDelete:
		var input ListDeleteInput
		if err := unmarshalArgs(action.Args, &input); err != nil {
			return nil, err
		}
		return s.listDelete(ctx, input)
	default:
		return nil, fault.Invalid("unknown pending action op %q", action.Op)
	}
}

func unmarshalArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fault.Invalid("pending action has no args")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fault.Invalid("bad pending action args: %v", err)
	}
	return nil
}
