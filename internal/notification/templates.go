package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"franchisee-hub/internal/models"
)

//go:embed templates/*.html templates/*.txt
var templateFiles embed.FS

// Keys of Notification.Data read by the templates.
const (
	DataEmail          = "email"
	DataPassword       = "password"
	DataApplicantName  = "applicantName"
	DataApplicantEmail = "applicantEmail"
	DataBusinessName   = "businessName"
	DataCity           = "city"
)

var subjects = map[models.NotificationKind]string{
	models.KindCredentialsReady:    "🎉 Your FranchiseeHub Account is Ready!",
	models.KindApplicationAccepted: "✅ Your Franchise Application Has Been Accepted",
	models.KindApplicationRejected: "FranchiseeHub Application Status Update",
	models.KindNewApplication:      "🔔 New Franchise Application Received",
}

// Subject returns the fixed subject line for kind.
func Subject(kind models.NotificationKind) string {
	return subjects[kind]
}

type kindTemplates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Renderer turns a Notification into subject, HTML and plain-text bodies.
type Renderer struct {
	fromName  string
	portalURL string
	kinds     map[models.NotificationKind]kindTemplates
}

type view struct {
	Name      string
	Recipient string
	FromName  string
	PortalURL string
	Data      map[string]string
}

// Rendered is one message ready for a transport.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

func NewRenderer(fromName, portalURL string) (*Renderer, error) {
	r := &Renderer{
		fromName:  fromName,
		portalURL: portalURL,
		kinds:     make(map[models.NotificationKind]kindTemplates, len(subjects)),
	}
	for kind := range subjects {
		h, err := htmltemplate.ParseFS(templateFiles, "templates/layout.html", "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", kind, err)
		}
		t, err := texttemplate.ParseFS(templateFiles, "templates/"+string(kind)+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", kind, err)
		}
		r.kinds[kind] = kindTemplates{html: h, text: t}
	}
	return r, nil
}

func (r *Renderer) Render(n models.Notification) (*Rendered, error) {
	tpl, ok := r.kinds[n.Kind]
	if !ok {
		return nil, fmt.Errorf("template not found for kind: %s", n.Kind)
	}

	v := view{
		Name:      n.Name,
		Recipient: n.Recipient,
		FromName:  r.fromName,
		PortalURL: r.portalURL,
		Data:      n.Data,
	}
	if v.Data == nil {
		v.Data = map[string]string{}
	}

	var html, text bytes.Buffer
	if err := tpl.html.ExecuteTemplate(&html, "layout", v); err != nil {
		return nil, fmt.Errorf("render %s html: %w", n.Kind, err)
	}
	if err := tpl.text.Execute(&text, v); err != nil {
		return nil, fmt.Errorf("render %s text: %w", n.Kind, err)
	}

	return &Rendered{Subject: subjects[n.Kind], HTML: html.String(), Text: text.String()}, nil
}
