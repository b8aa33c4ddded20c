// Package mailer delivers reviewed outreach emails over SMTP.
package mailer

import (
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one plain-text email.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	Body        string
}

// Bytes renders m as an RFC 5322 message with CRLF line endings.
func (m Message) Bytes(now time.Time) []byte {
	from := (&mail.Address{Name: m.FromName, Address: m.FromAddress}).String()
	to := (&mail.Address{Address: m.To}).String()

	domain := "localhost"
	if at := strings.LastIndex(m.FromAddress, "@"); at >= 0 && at < len(m.FromAddress)-1 {
		domain = m.FromAddress[at+1:]
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), domain))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	msg.WriteString("\r\n")
	return []byte(msg.String())
}
