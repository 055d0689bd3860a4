package entity

// Reference is an employee who is informed of a document's outcome but
// never acts on it. References carry no status and no ordering.
type Reference struct {
	ID         int64 `json:"id"`
	DocID      int64 `json:"doc_id"`
	EmployeeID int64 `json:"employee_id"`
}
