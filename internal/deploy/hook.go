// Package deploy triggers the hosting provider's build hook after a
// successful commit. The trigger is fire-and-forget: its outcome is observed
// and logged but never rolls back anything.
package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Trigger posts to a configured build-hook URL.
type Trigger struct {
	HookURL string
	client  *http.Client
}

// NewTrigger creates a deploy trigger for the given hook URL.
func NewTrigger(hookURL string) *Trigger {
	return &Trigger{
		HookURL: hookURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fire posts an empty body to the build hook. A non-2xx response is an error
// for the caller to log.
func (t *Trigger) Fire(ctx context.Context) error {
	if t.HookURL == "" {
		return fmt.Errorf("no deploy hook configured")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.HookURL, strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger deploy: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deploy hook returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
