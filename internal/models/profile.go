package models

// Profile is the display identity of a marketplace user. Rows are maintained
// by the identity provider sync; this service only reads them.
type Profile struct {
	UserID      int     `db:"user_id" json:"user_id"`
	FullName    string  `db:"full_name" json:"full_name"`
	CompanyName *string `db:"company_name" json:"company_name,omitempty"`
}

// DisplayName resolves the name shown as a thread counterparty: the company
// name when present, otherwise the person's full name.
func (p Profile) DisplayName() string {
	if p.CompanyName != nil && *p.CompanyName != "" {
		return *p.CompanyName
	}
	return p.FullName
}
