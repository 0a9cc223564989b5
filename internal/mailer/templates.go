package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).ParseFS(templateFS, "templates/*.html"))

type WelcomeData struct {
	Email string
}

type ContactData struct {
	Email   string
	Message string
	SentAt  time.Time
}

func RenderWelcome(data WelcomeData) (string, error) {
	return render("welcome.html", data)
}

func RenderContact(data ContactData) (string, error) {
	return render("contact.html", data)
}

// ContactText is the plain-text fallback of the contact notification.
func ContactText(data ContactData) string {
	return fmt.Sprintf("New message from the ScanPay contact form\n\nCustomer email: %s\n\nMessage:\n%s\n\nSent: %s\n",
		data.Email, data.Message, data.SentAt.UTC().Format(time.RFC1123))
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
