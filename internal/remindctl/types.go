package remindctl

// Data contract of remindctl's --json output. Field names follow the
// external tool, not Go conventions; the tool owns this schema.

type Reminder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ListID      string `json:"listID"`
	ListName    string `json:"listName"`
	IsCompleted bool   `json:"isCompleted"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type List struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ReminderCount *int64 `json:"reminderCount,omitempty"`
	OverdueCount  *int64 `json:"overdueCount,omitempty"`
}

type Status struct {
	Authorized bool   `json:"authorized"`
	Status     string `json:"status"`
}
