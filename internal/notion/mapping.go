package notion

// assignFallbacks lists the select-typed properties consulted, in order, when
// the multi-select "Assign" property is empty.
var assignFallbacks = []string{"Assign", "Assigned to", "Assigned To", "assignedTo", "assigned"}

// assignSchemaNames lists the database properties that may hold assign options.
var assignSchemaNames = []string{"Assign", "Assigned to", "Assigned To", "assignedTo", "assigned", "Assignee", "assignee"}

func taskFromPage(p page) Task {
	props := p.Properties

	t := Task{
		ID:           p.ID,
		Title:        firstText(props["Name"].Title),
		Status:       selectName(props["Status"]),
		Team:         selectName(props["Team"]),
		Priority:     selectName(props["Priority"]),
		Description:  firstText(props["Description"].RichText),
		CreatedDate:  p.CreatedTime,
		LastModified: p.LastEditedTime,
	}
	if t.Title == "" {
		t.Title = "Untitled"
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if due := props["Due Date"].Date; due != nil {
		t.DueDate = due.Start
	}
	if people := props["Assignee"].People; len(people) > 0 {
		t.Assignee = people[0].Name
		t.AssigneeID = people[0].ID
	}
	t.Assign = assignName(props)
	return t
}

func assignName(props map[string]property) string {
	if ms := props["Assign"].MultiSelect; len(ms) > 0 && ms[0].Name != "" {
		return ms[0].Name
	}
	for _, name := range assignFallbacks {
		if v := selectName(props[name]); v != "" {
			return v
		}
	}
	if people := props["Assignee"].People; len(people) > 0 {
		return people[0].Name
	}
	return ""
}

func selectName(p property) string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

func firstText(texts []richText) string {
	if len(texts) == 0 {
		return ""
	}
	return texts[0].PlainText
}

// patchProperties renders a TaskPatch as a Notion page properties payload.
func patchProperties(p TaskPatch) map[string]interface{} {
	props := make(map[string]interface{})
	if p.Status != nil {
		props["Status"] = map[string]interface{}{"select": map[string]string{"name": *p.Status}}
	}
	if p.Team != nil {
		if *p.Team == "" {
			props["Team"] = map[string]interface{}{"select": nil}
		} else {
			props["Team"] = map[string]interface{}{"select": map[string]string{"name": *p.Team}}
		}
	}
	if p.AssigneeID != nil {
		people := []map[string]string{}
		if *p.AssigneeID != "" {
			people = append(people, map[string]string{"id": *p.AssigneeID})
		}
		props["Assignee"] = map[string]interface{}{"people": people}
	}
	if p.Assign != nil {
		options := []map[string]string{}
		if *p.Assign != "" {
			options = append(options, map[string]string{"name": *p.Assign})
		}
		props["Assign"] = map[string]interface{}{"multi_select": options}
	}
	return props
}

// queryFilter renders the upstream part of a TaskFilter. Assignee is matched
// locally because the assign name may live in several property types.
func queryFilter(f TaskFilter) interface{} {
	var and []map[string]interface{}
	if f.Team != "" {
		and = append(and, map[string]interface{}{
			"property": "Team",
			"select":   map[string]string{"equals": f.Team},
		})
	}
	if f.Status != "" {
		and = append(and, map[string]interface{}{
			"property": "Status",
			"select":   map[string]string{"equals": f.Status},
		})
	}
	if len(and) == 0 {
		return nil
	}
	return map[string]interface{}{"and": and}
}
