package app

import (
	netmail "net/mail"
	"strings"

	"github.com/charlesng35/authcore/pkg/mail"
)

const implicitTLSPort = 465

// SMTPSettings converts EmailConfig for the mailer. Port 465 always dials with implicit
// TLS and a configured sender name is folded into the From address.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	smtp := c.SMTP
	return mail.SMTPSettings{
		Enabled:  smtp.Enabled,
		Host:     strings.TrimSpace(smtp.Host),
		Port:     smtp.Port,
		Username: strings.TrimSpace(smtp.Username),
		Password: smtp.Password,
		From:     senderAddress(smtp.FromName, smtp.From),
		UseTLS:   smtp.UseTLS || smtp.Port == implicitTLSPort,
		Timeout:  smtp.Timeout,
	}
}

func senderAddress(name, address string) string {
	name, address = strings.TrimSpace(name), strings.TrimSpace(address)
	if name == "" || address == "" {
		return address
	}
	return (&netmail.Address{Name: name, Address: address}).String()
}
