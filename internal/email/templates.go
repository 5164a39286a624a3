package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// LeadContact is the identity block shown in every lead email.
type LeadContact struct {
	Name   string
	Phone  string
	Email  string
	Rating *int
}

// LeadAnalysisData renders the full analysis variant.
type LeadAnalysisData struct {
	TaskTitle    string
	Lead         LeadContact
	VisitorTurns int
	Summary      string
	Pains        []string
	Benefits     []string
	Script       string
	DashboardURL string
}

// LeadLowEngagementData renders the variant sent when the conversation was
// too short for analysis.
type LeadLowEngagementData struct {
	TaskTitle    string
	Lead         LeadContact
	VisitorTurns int
	DashboardURL string
}

type leadAnalysisEmailData struct {
	baseEmailData
	LeadAnalysisData
}

type leadLowEngagementEmailData struct {
	baseEmailData
	LeadLowEngagementData
}

// RenderLeadAnalysis returns the subject and HTML body of the analysis email.
func RenderLeadAnalysis(data LeadAnalysisData) (string, string, error) {
	content, err := renderEmailTemplate("lead_analysis.html", leadAnalysisEmailData{
		baseEmailData: baseEmailData{
			Title:      "New lead",
			Heading:    "A new lead left their details",
			Subheading: data.TaskTitle,
			CTALabel:   "Open dashboard",
			CTAURL:     data.DashboardURL,
		},
		LeadAnalysisData: data,
	})
	if err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf(subjectLeadAnalysisFmt, data.TaskTitle, displayName(data.Lead.Name)) + ratingSuffix(data.Lead.Rating)
	return subject, content, nil
}

// RenderLeadLowEngagement returns the subject and HTML body of the
// low-engagement email.
func RenderLeadLowEngagement(data LeadLowEngagementData) (string, string, error) {
	content, err := renderEmailTemplate("lead_low_engagement.html", leadLowEngagementEmailData{
		baseEmailData: baseEmailData{
			Title:      "New lead",
			Heading:    "A new lead left their details",
			Subheading: data.TaskTitle,
			CTALabel:   "Open dashboard",
			CTAURL:     data.DashboardURL,
		},
		LeadLowEngagementData: data,
	})
	if err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf(subjectLeadLowEngagementFmt, data.TaskTitle) + ratingSuffix(data.Lead.Rating)
	return subject, content, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return anonymousLeadName
	}
	return strings.TrimSpace(name)
}

func ratingSuffix(rating *int) string {
	if rating == nil {
		return ""
	}
	return fmt.Sprintf(subjectLeadRatingSuffixFmt, *rating)
}
