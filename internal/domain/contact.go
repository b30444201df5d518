package domain

// ContactRole enumerates a contact's position in the account hierarchy.
type ContactRole string

const (
	RolePrimary   ContactRole = "primary"
	RoleSecondary ContactRole = "secondary"
	RoleTertiary  ContactRole = "tertiary"
)

// Contact represents one person at a target account.
//
// Contacts are created once at campaign initialization from raw lead data
// and are immutable for the campaign's life, except for Unsubscribed which
// may be flipped by an external operator action.
type Contact struct {
	ID            string      `json:"contact_id" db:"contact_id"`
	Name          string      `json:"name" db:"name"`
	Email         string      `json:"email,omitempty" db:"email"`
	Phone         string      `json:"phone,omitempty" db:"phone"`
	Title         string      `json:"title,omitempty" db:"title"`
	LinkedInURL   string      `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Role          ContactRole `json:"role" db:"role"`
	Priority      int         `json:"priority" db:"priority"`
	PriorityScore int         `json:"priority_score" db:"priority_score"`
	Unsubscribed  bool        `json:"unsubscribed" db:"unsubscribed"`
}

// FirstName returns the leading token of the contact's name, for greetings.
func (c Contact) FirstName() string {
	for i := 0; i < len(c.Name); i++ {
		if c.Name[i] == ' ' {
			return c.Name[:i]
		}
	}
	return c.Name
}

// Lead is the raw inbound payload a campaign is created from.
type Lead struct {
	AccountID       string        `json:"account_id"`
	CompanyName     string        `json:"company_name,omitempty"`
	Name            string        `json:"name,omitempty"`
	Email           string        `json:"email,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Title           string        `json:"title,omitempty"`
	LinkedInURL     string        `json:"linkedin_url,omitempty"`
	AccountContacts []LeadContact `json:"account_contacts,omitempty"`
}

// LeadContact is an additional contact supplied on the lead record.
type LeadContact struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}
