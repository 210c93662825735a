package notify

import (
	"fmt"
	"net/http"
	"time"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsTimeout sets the webhook request timeout
func WithTeamsTimeout(d time.Duration) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client.Timeout = d
	}
}

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the name of the notifier
func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage represents a Microsoft Teams Adaptive Card message
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

// teamsCard represents an Adaptive Card
type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

// teamsCardContent is the content of an Adaptive Card
type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

// teamsBlock represents a block in the Adaptive Card
type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Items     []teamsBlock  `json:"items,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

// teamsColumn represents a column in a ColumnSet
type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(summary *RunSummary) error {
	color := "good"
	emoji := "✓"

	if !summary.Success() {
		color = "attention"
		emoji = "✗"
	} else if summary.IsRecovery {
		emoji = "🎉"
	}

	column := func(label, value, color string) teamsColumn {
		return teamsColumn{
			Type:  "Column",
			Width: "stretch",
			Items: []teamsBlock{
				{Type: "TextBlock", Text: "**" + label + "**", Wrap: true},
				{Type: "TextBlock", Text: value, Color: color, Wrap: true},
			},
		}
	}

	body := []teamsBlock{
		{
			Type:   "TextBlock",
			Size:   "Large",
			Weight: "Bolder",
			Text:   fmt.Sprintf("%s %s", emoji, headline(summary)),
			Color:  color,
		},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				column("Total Tests", fmt.Sprintf("%d", summary.TotalTests), ""),
				column("Passed", fmt.Sprintf("%d", summary.PassedTests), "good"),
				column("Failed", fmt.Sprintf("%d", summary.FailedTests+summary.ErroredTests), "attention"),
				column("Pass Rate", fmt.Sprintf("%.1f%%", summary.PassRate), ""),
				column("Duration", summary.Duration.Round(time.Millisecond).String(), ""),
			},
		},
	}

	// Add environment if present
	if summary.Environment != "" {
		body = append(body, teamsBlock{
			Type: "TextBlock",
			Text: fmt.Sprintf("**Environment:** %s", summary.Environment),
			Wrap: true,
		})
	}

	if summary.InvalidCases > 0 {
		body = append(body, teamsBlock{
			Type:  "TextBlock",
			Text:  fmt.Sprintf("**Invalid cases:** %d", summary.InvalidCases),
			Color: "warning",
			Wrap:  true,
		})
	}

	if len(summary.FailedResults) > 0 {
		body = append(body,
			teamsBlock{
				Type:      "TextBlock",
				Text:      "**Did not pass:**",
				Separator: true,
				Spacing:   "Medium",
			},
			teamsBlock{
				Type: "TextBlock",
				Text: details(summary, "- `%s`", "    - %s\n"),
				Wrap: true,
			},
		)
	}

	if summary.ReportPath != "" {
		body = append(body, teamsBlock{
			Type: "TextBlock",
			Text: fmt.Sprintf("**Report:** `%s`", summary.ReportPath),
			Wrap: true,
		})
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_hitcase %s - %s_", summary.RunID, summary.StartedAt.Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{
			{
				ContentType: "application/vnd.microsoft.card.adaptive",
				ContentURL:  nil,
				Content: teamsCardContent{
					Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
					Type:    "AdaptiveCard",
					Version: "1.2",
					Body:    body,
				},
			},
		},
	}

	return t.send(msg)
}

func (t *TeamsNotifier) send(msg teamsMessage) error {
	return postWebhook(t.client, "teams", t.webhookURL, msg, http.StatusOK, http.StatusAccepted)
}
