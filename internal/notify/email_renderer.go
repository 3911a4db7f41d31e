package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// HTMLEmailRenderer renders notifications as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

// NewHTMLEmailRenderer creates a renderer with the default email template.
func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	t := template.Must(template.New("email").Parse(emailHTMLTemplate))
	return &HTMLEmailRenderer{tmpl: t}
}

// Render produces an HTML email with plain text alternative.
func (r *HTMLEmailRenderer) Render(data NotificationData) (*RenderedMessage, error) {
	subject := fmt.Sprintf("Event Update: %s", data.Label)

	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: subject,
		Text:    renderPlainText(data),
		HTML:    htmlBuf.String(),
	}, nil
}

func renderPlainText(data NotificationData) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("New relevant information found for your event '%s':\n\n", data.Label))

	for _, r := range data.Results {
		sb.WriteString(fmt.Sprintf("Title: %s\n", r.Title))
		sb.WriteString(fmt.Sprintf("Snippet: %s\n", r.Snippet))
		sb.WriteString(fmt.Sprintf("Link: %s\n\n", r.Link))
	}

	sb.WriteString(data.Footer)
	return sb.String()
}
