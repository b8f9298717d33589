package mcp

import (
	"context"
	"encoding/json"

	"remindgate/internal/fault"
	"remindgate/internal/pending"
	"remindgate/internal/service"
)

var (
	remindersListAllowedKeys = keySet(
		"filter",
		"includeCompleted",
		"listId",
		"listName",
	)
	reminderAddAllowedKeys = keySet(
		"title",
		"listId",
		"listName",
		"due",
		"notes",
		"priority",
	)
	reminderEditAllowedKeys = keySet(
		"reminderId",
		"title",
		"listId",
		"listName",
		"due",
		"clearDue",
		"notes",
		"priority",
		"complete",
	)
	reminderCompleteAllowedKeys = keySet(
		"reminderIds",
		"reminderId",
		"dryRun",
	)
	reminderDeleteAllowedKeys = keySet(
		"reminderIds",
		"reminderId",
		"dryRun",
		"allowMissing",
	)
	listCreateAllowedKeys = keySet("name")
	listRenameAllowedKeys = keySet("listRef", "newName")
	listDeleteAllowedKeys = keySet("listRef")
	processPendingAllowedKeys = keySet(
		"actions",
		"stopOnError",
	)
	pendingActionAllowedKeys = keySet(
		"id",
		"op",
		"args",
	)
)

type toolHandler func(s *Server, ctx context.Context, args map[string]any) (any, error)

var toolHandlers = map[string]toolHandler{
	"server_health":           (*Server).toolServerHealth,
	"lists_list":              (*Server).toolListsList,
	"reminders_list":          (*Server).toolRemindersList,
	"reminder_add":            (*Server).toolReminderAdd,
	"reminder_edit":           (*Server).toolReminderEdit,
	"reminder_complete":       (*Server).toolReminderComplete,
	"reminder_delete":         (*Server).toolReminderDelete,
	"list_create":             (*Server).toolListCreate,
	"list_rename":             (*Server).toolListRename,
	"list_delete":             (*Server).toolListDelete,
	"pending_list":            (*Server).toolPendingList,
	"process_pending_actions": (*Server).toolProcessPendingActions,
}

func (s *Server) toolServerHealth(ctx context.Context, args map[string]any) (any, error) {
	if len(args) > 0 {
		return nil, fault.Invalid("server_health accepts no arguments")
	}

	out := map[string]any{
		"server":       serverName,
		"version":      s.version,
		"authRequired": s.authRequired,
	}
	status, err := s.svc.Health(ctx)
	if err != nil {
		out["available"] = false
		out["authorized"] = false
		out["error"] = map[string]any{
			"kind":    string(fault.KindOf(err)),
			"message": err.Error(),
		}
	} else {
		out["available"] = true
		out["authorized"] = status.Authorized
		out["status"] = status.Status
	}
	if actions, perr := s.svc.Pending(); perr == nil {
		out["pendingActions"] = len(actions)
	}
	return out, nil
}

func (s *Server) toolListsList(ctx context.Context, args map[string]any) (any, error) {
	if len(args) > 0 {
		return nil, fault.Invalid("lists_list accepts no arguments")
	}
	lists, err := s.svc.Lists(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"lists": lists, "count": len(lists)}, nil
}

func (s *Server) toolRemindersList(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, remindersListAllowedKeys, "reminders_list arguments"); err != nil {
		return nil, err
	}
	var (
		input service.RemindersInput
		err   error
	)
	if input.Filter, err = parseString(args, "filter"); err != nil {
		return nil, err
	}
	if input.IncludeCompleted, err = parseBool(args, "includeCompleted"); err != nil {
		return nil, err
	}
	if input.ListID, err = parseString(args, "listId"); err != nil {
		return nil, err
	}
	if input.ListName, err = parseString(args, "listName"); err != nil {
		return nil, err
	}

	reminders, err := s.svc.Reminders(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"reminders": reminders, "count": len(reminders)}, nil
}

func (s *Server) toolReminderAdd(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, reminderAddAllowedKeys, "reminder_add arguments"); err != nil {
		return nil, err
	}
	var (
		input service.AddInput
		err   error
	)
	if input.Title, err = parseString(args, "title"); err != nil {
		return nil, err
	}
	if input.ListID, err = parseString(args, "listId"); err != nil {
		return nil, err
	}
	if input.ListName, err = parseString(args, "listName"); err != nil {
		return nil, err
	}
	if input.Due, err = parseString(args, "due"); err != nil {
		return nil, err
	}
	if input.Notes, err = parseString(args, "notes"); err != nil {
		return nil, err
	}
	if input.Priority, err = parseString(args, "priority"); err != nil {
		return nil, err
	}

	rem, ack, err := s.svc.Add(ctx, input)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return rem, nil
}

func (s *Server) toolReminderEdit(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, reminderEditAllowedKeys, "reminder_edit arguments"); err != nil {
		return nil, err
	}
	var (
		input service.EditInput
		err   error
	)
	if input.Ref, err = parseString(args, "reminderId"); err != nil {
		return nil, err
	}
	if input.Title, err = parseString(args, "title"); err != nil {
		return nil, err
	}
	if input.ListID, err = parseString(args, "listId"); err != nil {
		return nil, err
	}
	if input.ListName, err = parseString(args, "listName"); err != nil {
		return nil, err
	}
	if input.Due, err = parseString(args, "due"); err != nil {
		return nil, err
	}
	if input.ClearDue, err = parseBool(args, "clearDue"); err != nil {
		return nil, err
	}
	if input.Notes, err = parseString(args, "notes"); err != nil {
		return nil, err
	}
	if input.Priority, err = parseString(args, "priority"); err != nil {
		return nil, err
	}
	if input.Complete, err = parseOptionalBool(args, "complete"); err != nil {
		return nil, err
	}

	rem, ack, err := s.svc.Edit(ctx, input)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return rem, nil
}

func (s *Server) toolReminderComplete(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, reminderCompleteAllowedKeys, "reminder_complete arguments"); err != nil {
		return nil, err
	}
	var (
		input service.CompleteInput
		err   error
	)
	if input.Refs, err = parseStringList(args, "reminderIds"); err != nil {
		return nil, err
	}
	if input.Ref, err = parseString(args, "reminderId"); err != nil {
		return nil, err
	}
	if input.DryRun, err = parseBool(args, "dryRun"); err != nil {
		return nil, err
	}

	reminders, ack, err := s.svc.Complete(ctx, input)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return map[string]any{
		"completed": reminders,
		"count":     len(reminders),
		"dryRun":    input.DryRun,
	}, nil
}

func (s *Server) toolReminderDelete(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, reminderDeleteAllowedKeys, "reminder_delete arguments"); err != nil {
		return nil, err
	}
	var (
		input service.DeleteInput
		err   error
	)
	if input.Refs, err = parseStringList(args, "reminderIds"); err != nil {
		return nil, err
	}
	if input.Ref, err = parseString(args, "reminderId"); err != nil {
		return nil, err
	}
	if input.DryRun, err = parseBool(args, "dryRun"); err != nil {
		return nil, err
	}
	if input.AllowMissing, err = parseOptionalBool(args, "allowMissing"); err != nil {
		return nil, err
	}

	res, ack, err := s.svc.Delete(ctx, input)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return res, nil
}

func (s *Server) toolListCreate(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, listCreateAllowedKeys, "list_create arguments"); err != nil {
		return nil, err
	}
	name, err := parseString(args, "name")
	if err != nil {
		return nil, err
	}

	list, ack, err := s.svc.ListCreate(ctx, service.ListCreateInput{Name: name})
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return list, nil
}

func (s *Server) toolListRename(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, listRenameAllowedKeys, "list_rename arguments"); err != nil {
		return nil, err
	}
	var (
		input service.ListRenameInput
		err   error
	)
	if input.Ref, err = parseString(args, "listRef"); err != nil {
		return nil, err
	}
	if input.NewName, err = parseString(args, "newName"); err != nil {
		return nil, err
	}

	list, ack, err := s.svc.ListRename(ctx, input)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return list, nil
}

func (s *Server) toolListDelete(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, listDeleteAllowedKeys, "list_delete arguments"); err != nil {
		return nil, err
	}
	ref, err := parseString(args, "listRef")
	if err != nil {
		return nil, err
	}

	res, ack, err := s.svc.ListDelete(ctx, service.ListDeleteInput{Ref: ref})
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}
	return res, nil
}

func (s *Server) toolPendingList(ctx context.Context, args map[string]any) (any, error) {
	if len(args) > 0 {
		return nil, fault.Invalid("pending_list accepts no arguments")
	}
	actions, err := s.svc.Pending()
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []pending.Action{}
	}
	return map[string]any{"actions": actions, "count": len(actions)}, nil
}

// toolProcessPendingActions replays either the caller-supplied batch or,
// when actions is omitted, the gateway's own queue (with store
// bookkeeping: applied entries removed, failed ones kept with attempts
// bumped).
func (s *Server) toolProcessPendingActions(ctx context.Context, args map[string]any) (any, error) {
	if err := validateAllowedKeys(args, processPendingAllowedKeys, "process_pending_actions arguments"); err != nil {
		return nil, err
	}
	stopOnError, err := parseBool(args, "stopOnError")
	if err != nil {
		return nil, err
	}

	raw, supplied := args["actions"]
	if !supplied || raw == nil {
		batch, err := s.svc.DrainPending(ctx, stopOnError)
		if err != nil {
			return nil, err
		}
		return batch, nil
	}

	actions, err := parseActionBatch(raw, s.svc)
	if err != nil {
		return nil, err
	}
	return s.svc.ProcessPending(ctx, actions, stopOnError), nil
}

func parseActionBatch(raw any, svc *service.Service) ([]pending.Action, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fault.Invalid("actions must be an array")
	}
	out := make([]pending.Action, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fault.Invalid("actions[%d] must be an object", i)
		}
		if err := validateAllowedKeys(obj, pendingActionAllowedKeys, "action"); err != nil {
			return nil, err
		}
		op, err := parseString(obj, "op")
		if err != nil {
			return nil, err
		}
		if op == "" {
			return nil, fault.Invalid("actions[%d] is missing op", i)
		}
		id, err := parseString(obj, "id")
		if err != nil {
			return nil, err
		}

		var argsJSON json.RawMessage
		if rawArgs, ok := obj["args"]; ok && rawArgs != nil {
			encoded, err := json.Marshal(rawArgs)
			if err != nil {
				return nil, fault.Invalid("actions[%d] has unencodable args", i)
			}
			argsJSON = encoded
		} else {
			argsJSON = json.RawMessage(`{}`)
		}

		action := pending.NewAction(op, argsJSON, svc.Now())
		if id != "" {
			action.ID = id
		}
		out = append(out, action)
	}
	return out, nil
}

func stringSchema() map[string]any {
	return map[string]any{"type": "string"}
}

func boolSchema() map[string]any {
	return map[string]any{"type": "boolean"}
}

func stringListSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func (s *Server) toolDescriptors() []toolDescriptor {
	return []toolDescriptor{
		{
			Name:        "server_health",
			Description: "Probe the reminders backend and report availability, authorization, and queued write count",
			InputSchema: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			},
		},
		{
			Name:        "lists_list",
			Description: "List all reminder lists with reminder and overdue counts",
			InputSchema: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			},
		},
		{
			Name:        "reminders_list",
			Description: "List reminders, optionally filtered (pending, today, tomorrow, week, overdue, upcoming, completed, all, or a date) and scoped to one list",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filter":           stringSchema(),
					"includeCompleted": boolSchema(),
					"listId":           stringSchema(),
					"listName":         stringSchema(),
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "reminder_add",
			Description: "Create a reminder; without listId/listName the target list is inferred from the title and notes",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    stringSchema(),
					"listId":   stringSchema(),
					"listName": stringSchema(),
					"due":      stringSchema(),
					"notes":    stringSchema(),
					"priority": map[string]any{
						"type": "string",
						"enum": []string{"none", "low", "medium", "high"},
					},
				},
				"required":             []string{"title"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "reminder_edit",
			Description: "Edit one reminder selected by id or unique id prefix",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reminderId": stringSchema(),
					"title":      stringSchema(),
					"listId":     stringSchema(),
					"listName":   stringSchema(),
					"due":        stringSchema(),
					"clearDue":   boolSchema(),
					"notes":      stringSchema(),
					"priority": map[string]any{
						"type": "string",
						"enum": []string{"none", "low", "medium", "high"},
					},
					"complete": boolSchema(),
				},
				"required":             []string{"reminderId"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "reminder_complete",
			Description: "Mark reminders complete; every reference must resolve to exactly one reminder",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reminderIds": stringListSchema(),
					"reminderId":  stringSchema(),
					"dryRun":      boolSchema(),
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "reminder_delete",
			Description: "Delete reminders; already-missing references are reported, not failed, and an empty selection falls back to the most recently touched reminder",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reminderIds":  stringListSchema(),
					"reminderId":   stringSchema(),
					"dryRun":       boolSchema(),
					"allowMissing": boolSchema(),
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "list_create",
			Description: "Create a reminder list",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": stringSchema(),
				},
				"required":             []string{"name"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "list_rename",
			Description: "Rename the list selected by id, unique id prefix, or exact name",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"listRef": stringSchema(),
					"newName": stringSchema(),
				},
				"required":             []string{"listRef", "newName"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "list_delete",
			Description: "Delete a list and everything in it",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"listRef": stringSchema(),
				},
				"required":             []string{"listRef"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "pending_list",
			Description: "List writes queued while the backend was unreachable, in replay order",
			InputSchema: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			},
		},
		{
			Name:        "process_pending_actions",
			Description: "Replay queued writes in order; without an explicit actions array the gateway drains its own queue",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"actions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":   stringSchema(),
								"op":   stringSchema(),
								"args": map[string]any{"type": "object"},
							},
							"required":             []string{"op"},
							"additionalProperties": false,
						},
					},
					"stopOnError": boolSchema(),
				},
				"additionalProperties": false,
			},
		},
	}
}
