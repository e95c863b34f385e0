package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	Dialer Dialer
	From   string
	Brand  string
}

func NewEmailSender(host string, port int, user, password, from, brand string) *EmailSender {
	return &EmailSender{
		Dialer: gomail.NewDialer(host, port, user, password),
		From:   from,
		Brand:  brand,
	}
}

func render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return body.String(), nil
}

func (s *EmailSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp mail: %w", err)
	}
	return nil
}

func (s *EmailSender) SendRegistrationConfirmation(to string, data RegistrationEmailData) error {
	if data.Brand == "" {
		data.Brand = s.Brand
	}
	body, err := render("registration.html", data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("You're registered, %s!", data.Name)
	if data.WebinarTitle != "" {
		subject = fmt.Sprintf("Your seat for %s is confirmed", data.WebinarTitle)
	}
	return s.send(to, subject, body)
}

// SendFollowUpDigest mails the list of leads due for a call on day.
func (s *EmailSender) SendFollowUpDigest(to string, day time.Time, leads []entity.Lead) error {
	data := FollowUpDigestData{Day: day.Format("02 Jan 2006")}
	for _, l := range leads {
		row := DigestRow{
			Name:   l.Name,
			Phone:  "+" + l.PhoneKey,
			Status: string(l.Status),
			Notes:  l.FollowUpNotes,
		}
		if l.AssignedTo != nil {
			row.AssignedTo = *l.AssignedTo
		}
		data.Leads = append(data.Leads, row)
	}

	body, err := render("follow_up_digest.html", data)
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("%d follow-up(s) due %s", len(leads), data.Day), body)
}
