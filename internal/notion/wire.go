package notion

import (
	"encoding/json"
	"time"
)

type page struct {
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]property `json:"properties"`
}

type property struct {
	Type        string     `json:"type"`
	Title       []richText `json:"title,omitempty"`
	RichText    []richText `json:"rich_text,omitempty"`
	Select      *option    `json:"select,omitempty"`
	MultiSelect []option   `json:"multi_select,omitempty"`
	People      []user     `json:"people,omitempty"`
	Date        *dateValue `json:"date,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type option struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type user struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
}

type dateValue struct {
	Start string `json:"start"`
}

type queryRequest struct {
	Filter      interface{} `json:"filter,omitempty"`
	Sorts       []sortSpec  `json:"sorts,omitempty"`
	StartCursor string      `json:"start_cursor,omitempty"`
	PageSize    int         `json:"page_size,omitempty"`
}

type sortSpec struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type usersResponse struct {
	Results    []user  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type database struct {
	Properties map[string]schemaProperty `json:"properties"`
}

type schemaProperty struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Select      *optionsConfig `json:"select,omitempty"`
	MultiSelect *optionsConfig `json:"multi_select,omitempty"`
}

type optionsConfig struct {
	Options []option `json:"options"`
}

type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rawPage keeps property payloads undecoded for the schema debug output.
type rawPage struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type rawQueryResponse struct {
	Results []rawPage `json:"results"`
}
