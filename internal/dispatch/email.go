package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client the email sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailSender delivers email touchpoints through AWS SES.
type EmailSender struct {
	client    sesAPI
	fromName  string
	fromEmail string
}

// NewEmailSender creates an SES-backed email sender. Returns an error if the
// AWS config cannot be assembled from the given static credentials.
func NewEmailSender(ctx context.Context, accessKey, secretKey, region, fromName, fromEmail string) (*EmailSender, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &EmailSender{
		client:    sesv2.NewFromConfig(cfg),
		fromName:  fromName,
		fromEmail: fromEmail,
	}, nil
}

// Send delivers one email touchpoint. The contact must have an email
// address; email is the escalation fallback channel, so a contact can reach
// this sender without one.
func (s *EmailSender) Send(ctx context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error {
	if contact.Email == "" {
		return fmt.Errorf("contact %s has no email address", contact.ID)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{contact.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subjectFor(c, contact)), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(tp.Message), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(c.ID)},
			{Name: aws.String("contact_id"), Value: aws.String(contact.ID)},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send to contact %s: %w", contact.ID, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[Dispatch] Email sent to %s (id: %s)", logger.RedactEmail(contact.Email), messageID)
	return nil
}

func subjectFor(c *domain.Campaign, contact domain.Contact) string {
	if name, ok := c.Metadata[domain.MetaCompanyName].(string); ok && name != "" {
		return fmt.Sprintf("Quick question for %s", name)
	}
	return fmt.Sprintf("Quick question, %s", contact.FirstName())
}
