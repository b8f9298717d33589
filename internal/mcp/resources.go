package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"remindgate/internal/fault"
	"remindgate/internal/service"
)

const (
	resourceStatusURI = "remindgate://status"
	resourceListsURI  = "remindgate://lists"
	resourceConfigURI = "remindgate://server/config"

	templateRemindersByFilter = "remindgate://reminders/{filter}"
	templateListReminders     = "remindgate://list/{name}/reminders"
	templateReminderByID      = "remindgate://reminder/{id}"
)

type resourcesListResult struct {
	Resources []resourceDescriptor `json:"resources"`
}

type resourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourceTemplatesResult struct {
	ResourceTemplates []resourceTemplate `json:"resourceTemplates"`
}

type resourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

type resourcesReadResult struct {
	Contents []resourceContents `json:"contents"`
}

type resourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

func (s *Server) resourceDescriptors() []resourceDescriptor {
	return []resourceDescriptor{
		{
			URI:         resourceStatusURI,
			Name:        "Backend status",
			Description: "Reminders backend availability and authorization",
			MimeType:    "application/json",
		},
		{
			URI:         resourceListsURI,
			Name:        "Reminder lists",
			Description: "All reminder lists with counts",
			MimeType:    "application/json",
		},
		{
			URI:         resourceConfigURI,
			Name:        "Server configuration",
			Description: "Gateway identity and transport settings",
			MimeType:    "application/json",
		},
	}
}

func (s *Server) resourceTemplates() []resourceTemplate {
	return []resourceTemplate{
		{
			URITemplate: templateRemindersByFilter,
			Name:        "Reminders by filter",
			Description: "Reminders matching a filter (today, week, overdue, all, or a date)",
			MimeType:    "application/json",
		},
		{
			URITemplate: templateListReminders,
			Name:        "Reminders in a list",
			Description: "Pending reminders scoped to one list by name",
			MimeType:    "application/json",
		},
		{
			URITemplate: templateReminderByID,
			Name:        "Reminder by id",
			Description: "One reminder selected by id or unique id prefix",
			MimeType:    "application/json",
		},
	}
}

func (s *Server) readResource(ctx context.Context, uri string) (resourcesReadResult, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return resourcesReadResult{}, fault.Invalid("uri is required")
	}

	var (
		out any
		err error
	)
	switch {
	case uri == resourceStatusURI:
		out, err = s.statusResource(ctx)
	case uri == resourceListsURI:
		out, err = s.svc.Lists(ctx)
	case uri == resourceConfigURI:
		out = map[string]any{
			"server":       serverName,
			"version":      s.version,
			"authRequired": s.authRequired,
		}
	case strings.HasPrefix(uri, "remindgate://reminders/"):
		filter := strings.TrimPrefix(uri, "remindgate://reminders/")
		out, err = s.svc.RemindersByFilter(ctx, filter, "")
	case strings.HasPrefix(uri, "remindgate://list/") && strings.HasSuffix(uri, "/reminders"):
		name := strings.TrimSuffix(strings.TrimPrefix(uri, "remindgate://list/"), "/reminders")
		if name == "" {
			return resourcesReadResult{}, fault.Invalid("list name is required")
		}
		out, err = s.svc.Reminders(ctx, service.RemindersInput{ListName: name})
	case strings.HasPrefix(uri, "remindgate://reminder/"):
		id := strings.TrimPrefix(uri, "remindgate://reminder/")
		out, err = s.svc.ReminderByRef(ctx, id)
	default:
		return resourcesReadResult{}, fault.NotFound("unknown resource %q", uri)
	}
	if err != nil {
		return resourcesReadResult{}, err
	}

	text, merr := json.MarshalIndent(out, "", "  ")
	if merr != nil {
		return resourcesReadResult{}, merr
	}
	return resourcesReadResult{
		Contents: []resourceContents{
			{URI: uri, MimeType: "application/json", Text: string(text)},
		},
	}, nil
}

func (s *Server) statusResource(ctx context.Context) (any, error) {
	out := map[string]any{"authRequired": s.authRequired}
	status, err := s.svc.Health(ctx)
	if err != nil {
		out["available"] = false
		out["error"] = err.Error()
		return out, nil
	}
	out["available"] = true
	out["authorized"] = status.Authorized
	out["status"] = status.Status
	return out, nil
}
