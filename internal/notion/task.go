package notion

import (
	"net/url"
	"time"
)

// Task statuses used by the dashboard board columns.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// Task is a dashboard task mapped from a Notion database page.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	Assignee     string    `json:"assignee,omitempty"`
	AssigneeID   string    `json:"assigneeId,omitempty"`
	Assign       string    `json:"assign,omitempty"`
	Team         string    `json:"team,omitempty"`
	DueDate      string    `json:"dueDate,omitempty"`
	CreatedDate  time.Time `json:"createdDate"`
	LastModified time.Time `json:"lastModified"`
	Priority     string    `json:"priority,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// TaskPatch is a partial task update. A nil field is left untouched; a
// pointer to "" clears the property. Status cannot be cleared.
type TaskPatch struct {
	Status     *string `json:"status,omitempty" validate:"omitnil,task_status"`
	Team       *string `json:"team,omitempty" validate:"omitnil,max=100"`
	AssigneeID *string `json:"assigneeId,omitempty" validate:"omitnil,notion_id_or_empty"`
	Assign     *string `json:"assign,omitempty" validate:"omitnil,max=100"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Status == nil && p.Team == nil && p.AssigneeID == nil && p.Assign == nil
}

// Apply merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Team != nil {
		t.Team = *p.Team
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
	}
	if p.Assign != nil {
		t.Assign = *p.Assign
	}
}

// TaskFilter narrows a task list. Empty fields match everything; Assignee
// matches the task's Assign name.
type TaskFilter struct {
	Team     string
	Assignee string
	Status   string
}

// IsEmpty reports whether the filter matches every task.
func (f TaskFilter) IsEmpty() bool {
	return f.Team == "" && f.Assignee == "" && f.Status == ""
}

// Signature is a stable cache key suffix for the filter: "all" when empty,
// otherwise the set fields url-encoded in key order.
func (f TaskFilter) Signature() string {
	if f.IsEmpty() {
		return "all"
	}
	v := url.Values{}
	if f.Team != "" {
		v.Set("team", f.Team)
	}
	if f.Assignee != "" {
		v.Set("assignee", f.Assignee)
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	return v.Encode()
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.Team != "" && t.Team != f.Team {
		return false
	}
	if f.Assignee != "" && t.Assign != f.Assignee {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []Task, f TaskFilter) []Task {
	if f.IsEmpty() {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Assignee is a workspace member that can be assigned to tasks.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
