package entity

// Template is a document form definition. TemplateKey is the stable
// identifier downstream domains key their handlers on.
type Template struct {
	ID          int64  `json:"id"`
	TemplateKey string `json:"template_key"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
}

// Bookmark marks a template as a favorite of one employee.
type Bookmark struct {
	ID         int64 `json:"id"`
	EmployeeID int64 `json:"employee_id"`
	TemplateID int64 `json:"template_id"`
}

// Employee is the slice of the directory this engine needs: a name to
// decorate notifications with.
type Employee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
