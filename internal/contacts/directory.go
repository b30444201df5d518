// Package contacts extracts and prioritizes account contacts from raw lead
// payloads. The primary contact comes from the lead record itself; additional
// contacts come from the lead's account_contacts list.
package contacts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/abm-orchestrator/internal/domain"
)

// titleScores maps title keywords to priority scores. When multiple keywords
// match a title, the maximum score wins.
var titleScores = []struct {
	keyword string
	score   int
}{
	{"ceo", 100},
	{"chief executive", 100},
	{"cto", 95},
	{"chief technology", 95},
	{"cio", 95},
	{"chief information", 95},
	{"vp", 80},
	{"vice president", 80},
	{"director", 70},
	{"manager", 50},
	{"lead", 40},
}

// Extract builds the campaign contact list from a lead. The lead's own
// record becomes the primary contact; the first account contact is secondary
// and the rest are tertiary. Contacts without an email are dropped silently.
// Priority is assigned 1, 2, 3... in extraction order.
func Extract(lead domain.Lead) []domain.Contact {
	var out []domain.Contact

	if strings.TrimSpace(lead.Email) != "" {
		out = append(out, domain.Contact{
			ID:          newContactID(lead.AccountID),
			Name:        fallbackName(lead.Name, lead.Email),
			Email:       lead.Email,
			Phone:       lead.Phone,
			Title:       lead.Title,
			LinkedInURL: lead.LinkedInURL,
			Role:        domain.RolePrimary,
		})
	}

	for i, ac := range lead.AccountContacts {
		if strings.TrimSpace(ac.Email) == "" {
			continue
		}
		role := domain.RoleTertiary
		if i == 0 {
			role = domain.RoleSecondary
		}
		out = append(out, domain.Contact{
			ID:          newContactID(lead.AccountID),
			Name:        fallbackName(ac.Name, ac.Email),
			Email:       ac.Email,
			Phone:       ac.Phone,
			Title:       ac.Title,
			LinkedInURL: ac.LinkedInURL,
			Role:        role,
		})
	}

	for i := range out {
		out[i].Priority = i + 1
	}
	return out
}

// Prioritize computes priority scores from contact titles and returns the
// contacts ordered by score descending. Ties keep their extraction order
// (stable sort).
func Prioritize(cs []domain.Contact) []domain.Contact {
	out := make([]domain.Contact, len(cs))
	copy(out, cs)
	for i := range out {
		out[i].PriorityScore = ScoreTitle(out[i].Title)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	return out
}

// ScoreTitle returns the priority score for a job title using case-insensitive
// substring matching against the keyword table. Unmatched titles score 0.
func ScoreTitle(title string) int {
	t := strings.ToLower(title)
	best := 0
	for _, ts := range titleScores {
		if strings.Contains(t, ts.keyword) && ts.score > best {
			best = ts.score
		}
	}
	return best
}

func newContactID(accountID string) string {
	return fmt.Sprintf("%s-%s", accountID, uuid.New().String()[:8])
}

func fallbackName(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
