package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// postWebhook sends payload as JSON to url. Any status outside accepted is
// an error carrying the response body.
func postWebhook(client *http.Client, service, url string, payload any, accepted ...int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", service, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s notification: %w", service, err)
	}
	defer resp.Body.Close()

	if !slices.Contains(accepted, resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s webhook returned status %d: %s", service, resp.StatusCode, string(body))
	}
	return nil
}

// details lists every step that did not pass, one line per step plus one
// indented line per diff or error.
func details(summary *RunSummary, item, sub string) string {
	var b bytes.Buffer
	for _, ft := range summary.FailedResults {
		fmt.Fprintf(&b, item, ft.Name)
		if ft.Scenario != "" {
			fmt.Fprintf(&b, " (%s)", ft.Scenario)
		}
		if ft.Status != "" {
			fmt.Fprintf(&b, " [%s]", ft.Status)
		}
		b.WriteString("\n")
		for _, err := range ft.Errors {
			fmt.Fprintf(&b, sub, err)
		}
	}
	return b.String()
}
