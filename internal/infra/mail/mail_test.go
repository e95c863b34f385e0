package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func newTestSender() (*EmailSender, *fakeDialer) {
	d := &fakeDialer{}
	return &EmailSender{Dialer: d, From: "no-reply@nivesh.academy", Brand: "Nivesh Academy"}, d
}

func TestRenderRegistration(t *testing.T) {
	body, err := render("registration.html", RegistrationEmailData{
		Name:         "Asha <script>",
		WebinarTitle: "Stock basics",
		WebinarDate:  "10 Aug 2026, 19:00",
		Brand:        "Nivesh Academy",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Stock basics")
	assert.Contains(t, body, "10 Aug 2026, 19:00")
	assert.Contains(t, body, "Asha &lt;script&gt;")
}

func TestSendRegistrationConfirmation(t *testing.T) {
	s, d := newTestSender()

	require.NoError(t, s.SendRegistrationConfirmation("asha@example.com", RegistrationEmailData{Name: "Asha", WebinarTitle: "Stock basics"}))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Your seat for Stock basics is confirmed"}, d.sent[0].GetHeader("Subject"))

	require.NoError(t, s.SendRegistrationConfirmation("ravi@example.com", RegistrationEmailData{Name: "Ravi"}))
	assert.Equal(t, []string{"You're registered, Ravi!"}, d.sent[1].GetHeader("Subject"))
}

func TestSendFollowUpDigest(t *testing.T) {
	s, d := newTestSender()
	priya := "Priya"
	leads := []entity.Lead{
		{Name: "Asha", PhoneKey: "919876543210", Status: entity.StatusHot, AssignedTo: &priya},
		{Name: "Ravi", PhoneKey: "919811111111", Status: entity.StatusWarm},
	}

	require.NoError(t, s.SendFollowUpDigest("admin@nivesh.academy", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), leads))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"2 follow-up(s) due 01 Jul 2026"}, d.sent[0].GetHeader("Subject"))

	body, err := render("follow_up_digest.html", FollowUpDigestData{Day: "01 Jul 2026", Leads: []DigestRow{{Name: "Asha", Phone: "+919876543210", AssignedTo: "Priya"}}})
	require.NoError(t, err)
	assert.Contains(t, body, "+919876543210")
	assert.Contains(t, body, "Priya")
}

func TestSendWrapsSMTPErrors(t *testing.T) {
	s, d := newTestSender()
	d.err = errors.New("535 authentication failed")

	err := s.SendRegistrationConfirmation("asha@example.com", RegistrationEmailData{Name: "Asha"})
	assert.ErrorContains(t, err, "send smtp mail")
}

// TestNotifierRegistration - the webinar date is looked up for the email
func TestNotifierRegistration(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w, err := entity.NewWebinar("Stock basics", "webinar", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), "19:00")
	require.NoError(t, err)
	require.NoError(t, store.Webinars().Create(ctx, w))

	s, d := newTestSender()
	n := NewNotifier(s, store.Webinars(), zap.NewNop())

	err = n.HandleLeadEvent(ctx, queue.LeadEvent{
		Type:      queue.EventRegistration,
		LeadID:    "lead-1",
		Name:      "Asha",
		Phone:     "919876543210",
		Email:     "asha@example.com",
		WebinarID: w.ID,
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"Your seat for Stock basics is confirmed"}, d.sent[0].GetHeader("Subject"))
}

func TestNotifierSkipsMissingEmailAndUnknownTypes(t *testing.T) {
	s, d := newTestSender()
	n := NewNotifier(s, nil, nil)

	require.NoError(t, n.HandleLeadEvent(context.Background(), queue.LeadEvent{Type: queue.EventRegistration, Name: "Asha"}))
	assert.Empty(t, d.sent)

	err := n.HandleLeadEvent(context.Background(), queue.LeadEvent{Type: "enrolled"})
	assert.ErrorIs(t, err, queue.ErrUnprocessable)
}

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendTemplate(ctx context.Context, phone, template string, params []string) error {
	args := m.Called(ctx, phone, template, params)
	return args.Error(0)
}

// TestNotifierWhatsAppFailureStillEmails - the message channel never blocks the email
func TestNotifierWhatsAppFailureStillEmails(t *testing.T) {
	s, d := newTestSender()
	msgs := new(MockMessageSender)
	msgs.On("SendTemplate", mock.Anything, "919876543210", "webinar_registration", []string{"Asha", "Stock basics", ""}).
		Return(errors.New("template paused"))

	n := NewNotifier(s, nil, zap.NewNop()).WithMessages(msgs, "webinar_registration")

	err := n.HandleLeadEvent(context.Background(), queue.LeadEvent{
		Type:         queue.EventRegistration,
		Name:         "Asha",
		Phone:        "919876543210",
		Email:        "asha@example.com",
		WebinarTitle: "Stock basics",
	})

	require.NoError(t, err)
	assert.Len(t, d.sent, 1)
	msgs.AssertExpectations(t)
}

func TestNotifierWhatsAppOnly(t *testing.T) {
	msgs := new(MockMessageSender)
	msgs.On("SendTemplate", mock.Anything, "919876543210", "welcome", mock.Anything).Return(nil)

	n := NewNotifier(nil, nil, nil).WithMessages(msgs, "welcome")

	err := n.HandleLeadEvent(context.Background(), queue.LeadEvent{
		Type:  queue.EventRegistration,
		Name:  "Asha",
		Phone: "919876543210",
	})

	require.NoError(t, err)
	msgs.AssertExpectations(t)
}
