package queue

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends email jobs through a plain-auth SMTP relay.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewMailer(host, port, user, pass, from string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send renders the template for the job kind and submits it to the relay.
func (m *Mailer) Send(job EmailJob) error {
	subject, body, err := renderEmail(job)
	if err != nil {
		return err
	}
	msg := buildMessage(m.from, job.Email, subject, body)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{job.Email}, msg); err != nil {
		return fmt.Errorf("mailer: send %s to %s: %w", job.Kind, job.Email, err)
	}
	return nil
}

func renderEmail(job EmailJob) (subject, body string, err error) {
	switch job.Kind {
	case JobSignupVerifyOTP:
		return "Verify your account",
			fmt.Sprintf("Hi %s,\r\n\r\nYour verification code is %s. It expires in %d minutes.\r\n\r\nIf you did not sign up, you can ignore this email.\r\n",
				job.Name, job.OTP, job.ExpiresMin), nil
	case JobRecoverOTP:
		return "Recover your account",
			fmt.Sprintf("Hi %s,\r\n\r\nYour account recovery code is %s. It expires in %d minutes.\r\n\r\nIf you did not request recovery, please secure your account.\r\n",
				job.Name, job.OTP, job.ExpiresMin), nil
	case JobPasswordResetSuccess:
		return "Your password was changed",
			fmt.Sprintf("Hi %s,\r\n\r\nYour password was just changed. If this wasn't you, contact support immediately.\r\n",
				job.Name), nil
	default:
		return "", "", fmt.Errorf("mailer: unhandled email job kind %q", job.Kind)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
