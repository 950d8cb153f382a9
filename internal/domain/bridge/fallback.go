package bridge

import "github.com/tabflow/backend/internal/domain/workspace"

// FallbackTabs returns the fixed tab list substituted for a real fetch when
// no extension is connected and the mock fallback is enabled.
func FallbackTabs() []workspace.Tab {
	return []workspace.Tab{
		{ID: "ext-1", Title: "GitHub - TabFlow", URL: "https://github.com"},
		{ID: "ext-2", Title: "React Documentation", URL: "https://react.dev"},
		{ID: "ext-3", Title: "Linear - Workspace", URL: "https://linear.app"},
		{ID: "ext-4", Title: "Stripe Dashboard", URL: "https://dashboard.stripe.com"},
	}
}
