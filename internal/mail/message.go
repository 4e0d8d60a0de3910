package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is an outbound email. It is also the queue payload, hence the JSON tags.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type linkData struct {
	Name string
	URL  string
}

// ConfirmationMessage builds the account confirmation email carrying the one-time token
func ConfirmationMessage(baseURL, name, email, token string) (Message, error) {
	return build("confirm_account.html", "Confirma tu cuenta en BienesRaices.com", baseURL, "/auth/confirmar/", name, email, token)
}

// PasswordResetMessage builds the password reset email carrying the one-time token
func PasswordResetMessage(baseURL, name, email, token string) (Message, error) {
	return build("reset_password.html", "Reestablece tu password en BienesRaices.com", baseURL, "/auth/olvide-password/", name, email, token)
}

func build(tmpl, subject, baseURL, path, name, email, token string) (Message, error) {
	link := strings.TrimRight(baseURL, "/") + path + url.PathEscape(token)

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, linkData{Name: name, URL: link}); err != nil {
		return Message{}, fmt.Errorf("failed to render %s: %w", tmpl, err)
	}

	return Message{
		To:      email,
		Subject: subject,
		HTML:    body.String(),
	}, nil
}
