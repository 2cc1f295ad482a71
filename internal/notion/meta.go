package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// maxUserPages bounds the /users pagination.
const maxUserPages = 20

// AssignOptions returns the sorted option names of the first assign-like
// property found in the database schema.
func (c *Client) AssignOptions(ctx context.Context) ([]string, error) {
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, key := range assignSchemaNames {
		prop, ok := db.Properties[key]
		if !ok {
			continue
		}
		var cfg *optionsConfig
		switch {
		case prop.MultiSelect != nil:
			cfg = prop.MultiSelect
		case prop.Select != nil:
			cfg = prop.Select
		}
		if cfg == nil {
			continue
		}
		for _, o := range cfg.Options {
			if o.Name != "" {
				names = append(names, o.Name)
			}
		}
		break
	}
	sort.Strings(names)
	return names, nil
}

// Assignees lists the workspace's people, deduplicated by id and sorted by
// name. Bots and users without a name are skipped.
func (c *Client) Assignees(ctx context.Context) ([]Assignee, error) {
	seen := make(map[string]bool)
	out := []Assignee{}
	cursor := ""

	for page := 0; page < maxUserPages; page++ {
		path := "/users?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}
		var resp usersResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		for _, u := range resp.Results {
			if u.Type != "person" || u.ID == "" || u.Name == "" || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			out = append(out, Assignee{ID: u.ID, Name: u.Name})
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Schema describes the database layout for troubleshooting property mapping.
type Schema struct {
	DatabaseProperties []string          `json:"databaseProperties"`
	PropertyTypes      map[string]string `json:"propertyTypes"`
	SampleTasks        []SampleTask      `json:"sampleTasks"`
}

// SampleTask shows the raw assignment-related properties of one page.
type SampleTask struct {
	ID               string                     `json:"id"`
	Title            string                     `json:"title"`
	AllPropertyNames []string                   `json:"allPropertyNames"`
	AssignmentFields map[string]json.RawMessage `json:"assignmentFields"`
}

// DescribeSchema returns the database properties and up to three sample pages.
func (c *Client) DescribeSchema(ctx context.Context) (*Schema, error) {
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}

	schema := &Schema{
		DatabaseProperties: make([]string, 0, len(db.Properties)),
		PropertyTypes:      make(map[string]string, len(db.Properties)),
		SampleTasks:        []SampleTask{},
	}
	for name, prop := range db.Properties {
		schema.DatabaseProperties = append(schema.DatabaseProperties, name)
		schema.PropertyTypes[name] = prop.Type
	}
	sort.Strings(schema.DatabaseProperties)

	var raw rawQueryResponse
	path := "/databases/" + url.PathEscape(c.config.DatabaseID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, queryRequest{PageSize: 3}, &raw); err != nil {
		return nil, err
	}

	for _, p := range raw.Results {
		sample := SampleTask{
			ID:               p.ID,
			Title:            "Untitled",
			AllPropertyNames: make([]string, 0, len(p.Properties)),
			AssignmentFields: make(map[string]json.RawMessage),
		}
		for name, value := range p.Properties {
			sample.AllPropertyNames = append(sample.AllPropertyNames, name)
			lower := strings.ToLower(name)
			if strings.Contains(lower, "assign") || strings.Contains(lower, "owner") {
				sample.AssignmentFields[name] = value
			}
		}
		sort.Strings(sample.AllPropertyNames)
		if value, ok := p.Properties["Name"]; ok {
			var prop property
			if json.Unmarshal(value, &prop) == nil {
				if title := firstText(prop.Title); title != "" {
					sample.Title = title
				}
			}
		}
		schema.SampleTasks = append(schema.SampleTasks, sample)
	}
	return schema, nil
}

func (c *Client) database(ctx context.Context) (*database, error) {
	var db database
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(c.config.DatabaseID), nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}
