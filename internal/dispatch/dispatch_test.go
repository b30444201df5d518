package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

type stubSender struct {
	called int
	err    error
}

func (s *stubSender) Send(context.Context, *domain.Campaign, domain.Contact, *domain.Touchpoint) error {
	s.called++
	return s.err
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:        "camp-acct-1-42",
		AccountID: "acct-1",
		Metadata:  map[string]interface{}{domain.MetaCompanyName: "Acme"},
	}
}

func TestMuxRoutesByChannel(t *testing.T) {
	email := &stubSender{}
	sms := &stubSender{}
	fallback := &stubSender{}

	m := NewMux(fallback)
	m.Register(domain.ChannelEmail, email)
	m.Register(domain.ChannelSMS, sms)

	c := testCampaign()
	contact := domain.Contact{ID: "ct-1"}

	m.Send(context.Background(), c, contact, &domain.Touchpoint{Channel: domain.ChannelEmail})
	m.Send(context.Background(), c, contact, &domain.Touchpoint{Channel: domain.ChannelSMS})
	m.Send(context.Background(), c, contact, &domain.Touchpoint{Channel: domain.ChannelCall})

	if email.called != 1 || sms.called != 1 {
		t.Errorf("routing wrong: email=%d sms=%d", email.called, sms.called)
	}
	if fallback.called != 1 {
		t.Errorf("unregistered channel should hit fallback, called=%d", fallback.called)
	}
}

func TestMuxNoSenderErrors(t *testing.T) {
	m := NewMux(nil)
	err := m.Send(context.Background(), testCampaign(), domain.Contact{}, &domain.Touchpoint{Channel: domain.ChannelCall})
	if err == nil {
		t.Fatal("expected error with no sender and no fallback")
	}
}

func TestWebhookSenderPostsPayload(t *testing.T) {
	var got gatewayPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "secret", srv.Client())
	contact := domain.Contact{ID: "ct-1", Phone: "+15558675309"}
	tp := &domain.Touchpoint{Channel: domain.ChannelSMS, Message: "Hi Alice, quick thought on your pipeline."}

	if err := s.Send(context.Background(), testCampaign(), contact, tp); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got.To != "+15558675309" || got.Channel != "sms" || got.CampaignID != "camp-acct-1-42" {
		t.Errorf("payload = %+v", got)
	}
	if auth != "Bearer secret" {
		t.Errorf("auth header = %q", auth)
	}
}

func TestWebhookSenderRejectsMissingPhone(t *testing.T) {
	s := NewWebhookSender("http://gateway.invalid", "", http.DefaultClient)
	err := s.Send(context.Background(), testCampaign(), domain.Contact{ID: "ct-1"}, &domain.Touchpoint{Channel: domain.ChannelCall})
	if err == nil || !strings.Contains(err.Error(), "no phone") {
		t.Fatalf("err = %v, want missing-phone error", err)
	}
}

func TestWebhookSenderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "", srv.Client())
	contact := domain.Contact{ID: "ct-1", Phone: "+15558675309"}
	err := s.Send(context.Background(), testCampaign(), contact, &domain.Touchpoint{Channel: domain.ChannelSMS})
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("err = %v, want gateway status error", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailSenderBuildsSESInput(t *testing.T) {
	fake := &fakeSES{}
	s := &EmailSender{client: fake, fromName: "Ignite Outreach", fromEmail: "outreach@ignite.io"}

	contact := domain.Contact{ID: "ct-1", Name: "Alice Adams", Email: "alice@acme.com"}
	tp := &domain.Touchpoint{Channel: domain.ChannelEmail, Message: "Hi Alice,\n\nWould you be open to a 15-minute call?"}

	if err := s.Send(context.Background(), testCampaign(), contact, tp); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got := fake.input.Destination.ToAddresses[0]; got != "alice@acme.com" {
		t.Errorf("to = %q", got)
	}
	if got := *fake.input.Content.Simple.Subject.Data; got != "Quick question for Acme" {
		t.Errorf("subject = %q", got)
	}
	if got := *fake.input.Content.Simple.Body.Text.Data; got != tp.Message {
		t.Errorf("body = %q", got)
	}
}

func TestEmailSenderRequiresEmail(t *testing.T) {
	s := &EmailSender{client: &fakeSES{}}
	err := s.Send(context.Background(), testCampaign(), domain.Contact{ID: "ct-1"}, &domain.Touchpoint{Channel: domain.ChannelEmail})
	if err == nil || !strings.Contains(err.Error(), "no email") {
		t.Fatalf("err = %v, want missing-email error", err)
	}
}

func TestEmailSenderPropagatesSESError(t *testing.T) {
	s := &EmailSender{client: &fakeSES{err: errors.New("throttled")}}
	contact := domain.Contact{ID: "ct-1", Email: "alice@acme.com"}
	err := s.Send(context.Background(), testCampaign(), contact, &domain.Touchpoint{Channel: domain.ChannelEmail})
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("err = %v, want wrapped SES error", err)
	}
}
