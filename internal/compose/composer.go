// Package compose produces touchpoint message bodies using Liquid templates.
//
// Two families of message exist: the standard per-channel message for a
// campaign's first touches, and the colleague-reference variant that names a
// previously engaged contact at the same account to build social proof.
package compose

import (
	"log"

	"github.com/osteele/liquid"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// genericTopic is used when the referring contact has no touchpoint topic.
const genericTopic = "ways to streamline your team's outbound workflow"

const smsTemplate = `Hi {{ first_name }}, quick question about {{ company }}: open to a short chat this week? Reply STOP to opt out.`

const emailTemplate = `Hi {{ first_name }},

I'm reaching out because teams like {{ company }} use our platform to qualify and engage target accounts without the manual busywork.

Would you be open to a 15-minute call this week?

Best,
The Ignite Team`

const defaultTemplate = `Hi {{ first_name }}, following up from the Ignite team about {{ company }}.`

// colleagueTemplates are the three rotating colleague-reference bodies. The
// variant is chosen by step modulo 3, so rotation is deterministic and
// reproducible in tests.
var colleagueTemplates = []string{
	`Hi {{ first_name }},

Your colleague {{ referrer }} recently inquired about {{ topic }}. I thought you might want visibility into that conversation as well.

Would a brief call make sense?`,
	`Hi {{ first_name }},

I've been speaking with {{ referrer }} on your team about {{ topic }}. Looping you in since this usually touches your side of the house too.

Happy to share what we covered.`,
	`Hi {{ first_name }},

{{ referrer }} at {{ company }} reached out about {{ topic }}. Wanted to make sure the right people are in the loop before we go further.

Any interest in joining the discussion?`,
}

// Composer renders touchpoint messages. Safe for concurrent use: templates
// are parsed once at construction and rendering is read-only.
type Composer struct {
	sms       *liquid.Template
	email     *liquid.Template
	fallback  *liquid.Template
	colleague []*liquid.Template
}

// New parses all message templates. Template syntax errors here are
// programmer errors, so New panics rather than returning one.
func New() *Composer {
	engine := liquid.NewEngine()
	parse := func(src string) *liquid.Template {
		t, err := engine.ParseString(src)
		if err != nil {
			panic("compose: bad template: " + err.Error())
		}
		return t
	}

	c := &Composer{
		sms:      parse(smsTemplate),
		email:    parse(emailTemplate),
		fallback: parse(defaultTemplate),
	}
	for _, src := range colleagueTemplates {
		c.colleague = append(c.colleague, parse(src))
	}
	return c
}

// VariantIndex returns which colleague template a step uses. Exposed as a
// pure function so the rotation is independently verifiable.
func VariantIndex(step int) int {
	if step < 0 {
		step = -step
	}
	return step % len(colleagueTemplates)
}

// Message builds the body for a touchpoint. Past the first touch, contacts
// other than the primary get the colleague-reference variant with the
// primary as referrer. Composition never fails a campaign step: any render
// error degrades to a minimal greeting.
func (c *Composer) Message(camp *domain.Campaign, contact domain.Contact, ch domain.Channel) string {
	if camp.CurrentStep > 0 && contact.Role != domain.RolePrimary {
		if primary := camp.PrimaryContact(); primary != nil {
			return c.ColleagueMessage(camp, contact, *primary)
		}
	}

	var tpl *liquid.Template
	switch ch {
	case domain.ChannelSMS:
		tpl = c.sms
	case domain.ChannelEmail:
		tpl = c.email
	default:
		tpl = c.fallback
	}
	return c.render(tpl, bindings(camp, contact, "", ""), contact)
}

// ColleagueMessage builds the referral body naming the referring contact and
// the topic of their most recent touchpoint.
func (c *Composer) ColleagueMessage(camp *domain.Campaign, target, referrer domain.Contact) string {
	topic := genericTopic
	if last := camp.LastTouchpointFor(referrer.ID); last != nil && last.Topic != "" {
		topic = last.Topic
	}
	tpl := c.colleague[VariantIndex(camp.CurrentStep)]
	return c.render(tpl, bindings(camp, target, referrer.Name, topic), target)
}

func (c *Composer) render(tpl *liquid.Template, vars map[string]interface{}, contact domain.Contact) string {
	out, err := tpl.Render(vars)
	if err != nil {
		log.Printf("[compose] render failed, using minimal greeting: %v", err)
		return "Hi " + contact.FirstName() + ","
	}
	return string(out)
}

func bindings(camp *domain.Campaign, contact domain.Contact, referrer, topic string) map[string]interface{} {
	company := camp.AccountID
	if v, ok := camp.Metadata[domain.MetaCompanyName].(string); ok && v != "" {
		company = v
	}
	return map[string]interface{}{
		"first_name": contact.FirstName(),
		"name":       contact.Name,
		"company":    company,
		"referrer":   referrer,
		"topic":      topic,
	}
}
