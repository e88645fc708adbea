package models

// Student is the canonical student shape read from the document store.
type Student struct {
	ID         string `json:"id"`
	SchoolID   string `json:"school_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	Status     string `json:"status,omitempty"`
}

// StudentStatusActive is the only status listed by the payment views.
const StudentStatusActive = "active"
