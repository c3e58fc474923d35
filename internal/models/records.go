package models

// Record type discriminators.
const (
	TypeAgent      = "agent"
	TypeRequester  = "requester"
	TypeDepartment = "department"
	TypeService    = "service"
	TypeAsset      = "asset"
)

// Contact holds nested contact data some user payloads carry instead of top-level fields.
type Contact struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
}

// User is an agent or requester returned by people search.
type User struct {
	ID          int64    `json:"id"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Department  string   `json:"department"`
	Contact     *Contact `json:"contact,omitempty"`
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name"`
}

// Department is a group returned by department search.
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// Item is a service catalog item or an asset.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}
