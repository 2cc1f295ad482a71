package notion

import (
	"context"
	"net/http"
	"net/url"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
)

const queryPageSize = 100

// QueryTasks returns every task in the database matching f, newest first.
// Team and Status are filtered by Notion; Assignee is matched locally.
func (c *Client) QueryTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	path := "/databases/" + url.PathEscape(c.config.DatabaseID) + "/query"
	req := queryRequest{
		Filter:   queryFilter(f),
		Sorts:    []sortSpec{{Timestamp: "created_time", Direction: "descending"}},
		PageSize: queryPageSize,
	}

	var tasks []Task
	pages := 0
	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
			return nil, err
		}
		pages++
		for _, p := range resp.Results {
			tasks = append(tasks, taskFromPage(p))
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		req.StartCursor = *resp.NextCursor
	}

	if f.Assignee != "" {
		tasks = FilterTasks(tasks, TaskFilter{Assignee: f.Assignee})
	}
	if tasks == nil {
		tasks = []Task{}
	}

	c.logger.WithContext(ctx).Info("Fetched tasks from Notion",
		logging.Int("count", len(tasks)),
		logging.Int("pages", pages),
		logging.String("filter", f.Signature()),
	)
	return tasks, nil
}

// UpdateTask applies patch to the page with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	if id == "" {
		return errors.ValidationError("task id is required")
	}
	if patch.IsEmpty() {
		return errors.ValidationError("no fields to update")
	}
	body := map[string]interface{}{"properties": patchProperties(patch)}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(id), body, nil); err != nil {
		return err
	}
	c.logger.WithContext(ctx).Info("Updated Notion task", logging.String("task_id", id))
	return nil
}
