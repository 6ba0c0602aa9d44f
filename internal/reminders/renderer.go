package reminders

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/hirewell/interview-reminders/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders role-specific reminder content from templates. Event
// times are formatted in the recipient's timezone using a layout matched
// to the recipient's locale.
type Renderer struct {
	templates map[domain.RecipientRole]*template.Template
}

// NewRenderer creates a renderer and loads all role templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[domain.RecipientRole]*template.Template),
	}

	for _, role := range domain.RecipientRoles() {
		filename := fmt.Sprintf("templates/%s.tmpl", role)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(role)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", filename, err)
		}

		r.templates[role] = tmpl
	}

	return r, nil
}

// templateData is the rendering context for both role templates.
type templateData struct {
	RecipientName   string
	CandidateName   string
	InterviewerName string
	StartsAt        string
	Duration        string
	Modality        string
	Location        string
	IsRemote        bool
}

// Render renders the reminder for the given role.
// Returns subject and body.
func (r *Renderer) Render(role domain.RecipientRole, iv *domain.Interview) (subject, body string, err error) {
	tmpl, ok := r.templates[role]
	if !ok {
		return "", "", fmt.Errorf("template not found for role: %s", role)
	}

	recipient, err := iv.Recipient(role)
	if err != nil {
		return "", "", err
	}

	startsAt := formatInLocale(iv.ScheduledAt, recipient.Timezone, recipient.Locale)

	data := templateData{
		RecipientName:   recipient.Name,
		CandidateName:   iv.CandidateName,
		InterviewerName: iv.InterviewerName,
		StartsAt:        startsAt,
		Duration:        formatDuration(iv.Duration),
		Modality:        titleCase(string(iv.Modality)),
		Location:        iv.Location,
		IsRemote:        iv.Modality == domain.ModalityVideo,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", role, err)
	}

	subject = r.renderSubject(role, iv, startsAt)
	body = strings.TrimSpace(buf.String())
	return subject, body, nil
}

// renderSubject generates the reminder subject line.
func (r *Renderer) renderSubject(role domain.RecipientRole, iv *domain.Interview, startsAt string) string {
	switch role {
	case domain.RoleInterviewer:
		return fmt.Sprintf("[Reminder] Interview with %s - %s", iv.CandidateName, startsAt)
	default:
		return fmt.Sprintf("[Reminder] Your interview - %s", startsAt)
	}
}

// Locale handling

// supportedLocales are the locales with a dedicated date layout. Everything
// else falls back to English.
var supportedLocales = []language.Tag{
	language.English, // fallback
	language.German,
	language.French,
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var dateLayouts = map[language.Tag]string{
	language.English: "Monday, Jan 2, 2006 at 15:04 (MST)",
	language.German:  "Monday, 02.01.2006, 15:04 (MST)",
	language.French:  "Monday 02/01/2006 à 15:04 (MST)",
	language.Spanish: "Monday, 02/01/2006, 15:04 (MST)",
}

// formatInLocale formats t in the given IANA timezone with a locale-matched
// layout. Unknown timezones fall back to UTC.
func formatInLocale(t time.Time, timezone, locale string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	_, idx, _ := localeMatcher.Match(tag)

	layout, ok := dateLayouts[supportedLocales[idx]]
	if !ok {
		layout = dateLayouts[language.English]
	}

	return t.In(loc).Format(layout)
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}
