package service

import (
	"remindgate/internal/fault"
	"remindgate/internal/remindctl"
)

// Tool inputs. Field names follow the wire schema; empty strings mean
// the field was not supplied.

type RemindersInput struct {
	Filter           string `json:"filter,omitempty"`
	IncludeCompleted bool   `json:"includeCompleted,omitempty"`
	ListID           string `json:"listId,omitempty"`
	ListName         string `json:"listName,omitempty"`
}

type AddInput struct {
	Title    string `json:"title"`
	ListID   string `json:"listId,omitempty"`
	ListName string `json:"listName,omitempty"`
	Due      string `json:"due,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type EditInput struct {
	Ref      string `json:"reminderId"`
	Title    string `json:"title,omitempty"`
	ListID   string `json:"listId,omitempty"`
	ListName string `json:"listName,omitempty"`
	Due      string `json:"due,omitempty"`
	ClearDue bool   `json:"clearDue,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Priority string `json:"priority,omitempty"`
	Complete *bool  `json:"complete,omitempty"`
}

type CompleteInput struct {
	Refs   []string `json:"reminderIds,omitempty"`
	Ref    string   `json:"reminderId,omitempty"`
	DryRun bool     `json:"dryRun,omitempty"`
}

type DeleteInput struct {
	Refs         []string `json:"reminderIds,omitempty"`
	Ref          string   `json:"reminderId,omitempty"`
	DryRun       bool     `json:"dryRun,omitempty"`
	AllowMissing *bool    `json:"allowMissing,omitempty"`
}

type ListCreateInput struct {
	Name string `json:"name"`
}

type ListRenameInput struct {
	Ref     string `json:"listRef"`
	NewName string `json:"newName"`
}

type ListDeleteInput struct {
	Ref string `json:"listRef"`
}

// Results.

type DeleteResult struct {
	DeletedIDs          []string             `json:"deletedIds"`
	DeletedReminders    []remindctl.Reminder `json:"deletedReminders"`
	AlreadyAbsentRefs   []string             `json:"alreadyAbsentRefs"`
	UsedRecentReference bool                 `json:"usedRecentReference"`
	Message             string               `json:"message"`
}

type ListDeleteResult struct {
	Deleted bool `json:"deleted"`
}

// QueuedAck acknowledges a write that was deferred into the pending
// queue because the backend is unreachable.
type QueuedAck struct {
	Queued   bool   `json:"queued"`
	ActionID string `json:"actionId"`
	Op       string `json:"op"`
}

// Failure is the serializable form of a fault for batch results and the
// tool-surface error object.
type Failure struct {
	Kind       fault.Kind `json:"kind"`
	Message    string     `json:"message"`
	Candidates []string   `json:"candidates,omitempty"`
}

func failureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{
		Kind:       fault.KindOf(err),
		Message:    err.Error(),
		Candidates: fault.CandidatesOf(err),
	}
}

const (
	ActionApplied = "applied"
	ActionFailed  = "failed"
	ActionSkipped = "skipped"
)

type ActionResult struct {
	ID     string   `json:"id"`
	Op     string   `json:"op"`
	Status string   `json:"status"`
	Error  *Failure `json:"error,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Data   any      `json:"data,omitempty"`
}

type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Results   []ActionResult `json:"results"`
}
