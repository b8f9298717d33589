package service

import (
	"context"
	"strings"

	"remindgate/internal/fault"
	"remindgate/internal/remindctl"
	"remindgate/internal/resolve"
)

// Lists returns every reminder list with its counts.
func (s *Service) Lists(ctx context.Context) ([]remindctl.List, error) {
	return s.fetchLists(ctx)
}

// ListCreate makes a new list. Name collisions are the external tool's
// call and its error surfaces unchanged.
func (s *Service) ListCreate(ctx context.Context, input ListCreateInput) (remindctl.List, *QueuedAck, error) {
	if err := remindctl.ValidateText(input.Name, "name", maxListNameLen); err != nil {
		return remindctl.List{}, nil, err
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpListCreate, input)
		return remindctl.List{}, ack, err
	}
	list, err := s.listCreate(ctx, input)
	return list, nil, err
}

func (s *Service) listCreate(ctx context.Context, input ListCreateInput) (remindctl.List, error) {
	if err := remindctl.ValidateText(input.Name, "name", maxListNameLen); err != nil {
		return remindctl.List{}, err
	}
	if err := s.runner.WriteDiscard(ctx, []string{"list", input.Name, "--create"}); err != nil {
		return remindctl.List{}, err
	}
	// The create verb prints no JSON; refetch to report the new list.
	lists, err := s.fetchLists(ctx)
	if err != nil {
		return remindctl.List{}, err
	}
	for _, l := range lists {
		if strings.EqualFold(l.Title, input.Name) {
			return l, nil
		}
	}
	return remindctl.List{Title: input.Name}, nil
}

// ListRename renames the list selected by id, unique id prefix, or exact
// name.
func (s *Service) ListRename(ctx context.Context, input ListRenameInput) (remindctl.List, *QueuedAck, error) {
	if err := validateListRename(input); err != nil {
		return remindctl.List{}, nil, err
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpListRename, input)
		return remindctl.List{}, ack, err
	}
	list, err := s.listRename(ctx, input)
	return list, nil, err
}

func validateListRename(input ListRenameInput) error {
	if strings.TrimSpace(input.Ref) == "" {
		return fault.Invalid("listRef is required")
	}
	return remindctl.ValidateText(input.NewName, "newName", maxListNameLen)
}

func (s *Service) listRename(ctx context.Context, input ListRenameInput) (remindctl.List, error) {
	if err := validateListRename(input); err != nil {
		return remindctl.List{}, err
	}
	lists, err := s.fetchLists(ctx)
	if err != nil {
		return remindctl.List{}, err
	}
	target, err := resolve.ListRef(lists, input.Ref)
	if err != nil {
		return remindctl.List{}, err
	}
	if err := s.runner.WriteDiscard(ctx, []string{"list", target.Title, "--rename", input.NewName}); err != nil {
		return remindctl.List{}, err
	}
	renamed, err := s.fetchLists(ctx)
	if err != nil {
		return remindctl.List{}, err
	}
	for _, l := range renamed {
		if l.ID == target.ID {
			return l, nil
		}
	}
	for _, l := range renamed {
		if strings.EqualFold(l.Title, input.NewName) {
			return l, nil
		}
	}
	return remindctl.List{ID: target.ID, Title: input.NewName}, nil
}

// ListDelete removes a list and everything in it.
func (s *Service) ListDelete(ctx context.Context, input ListDeleteInput) (ListDeleteResult, *QueuedAck, error) {
	if strings.TrimSpace(input.Ref) == "" {
		return ListDeleteResult{}, nil, fault.Invalid("listRef is required")
	}
	if !s.backendAvailable(ctx) {
		ack, err := s.deferAction(OpListDelete, input)
		return ListDeleteResult{}, ack, err
	}
	res, err := s.listDelete(ctx, input)
	return res, nil, err
}

func (s *Service) listDelete(ctx context.Context, input ListDeleteInput) (ListDeleteResult, error) {
	if strings.TrimSpace(input.Ref) == "" {
		return ListDeleteResult{}, fault.Invalid("listRef is required")
	}
	lists, err := s.fetchLists(ctx)
	if err != nil {
		return ListDeleteResult{}, err
	}
	target, err := resolve.ListRef(lists, input.Ref)
	if err != nil {
		return ListDeleteResult{}, err
	}
	if err := s.runner.WriteDiscard(ctx, []string{"list", target.Title, "--delete", "--force"}); err != nil {
		return ListDeleteResult{}, err
	}
	return ListDeleteResult{Deleted: true}, nil
}
