package dispatch

import (
	"regexp"
	"strings"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

var (
	recipientPattern       = regexp.MustCompile(`(?i)Email to:\s*([^\n]+)`)
	recipientPrefixPattern = regexp.MustCompile(`(?i)^Email to:.*\n+\s*`)
	broadcastPrefixPattern = regexp.MustCompile(`(?i)^\s*Broadcast Email:\s*`)
)

// Classify resolves the route of a queued notification. Structured routing
// columns win when both channel and scope are set to known values; otherwise
// the route is read from the description text.
func Classify(n model.QueuedNotification) model.Route {
	if route, ok := structuredRoute(n); ok {
		return route
	}

	return legacyRoute(n.Description.String)
}

func structuredRoute(n model.QueuedNotification) (model.Route, bool) {
	if !n.Channel.Valid || !n.Scope.Valid {
		return model.Route{}, false
	}

	route := model.Route{
		Channel: model.Channel(strings.ToLower(strings.TrimSpace(n.Channel.String))),
		Scope:   model.Scope(strings.ToLower(strings.TrimSpace(n.Scope.String))),
	}

	switch route.Channel {
	case model.ChannelEmail, model.ChannelInApp:
	default:
		return model.Route{}, false
	}

	switch route.Scope {
	case model.ScopeBroadcast, model.ScopeSingle:
	default:
		return model.Route{}, false
	}

	if n.Recipient.Valid {
		route.Recipient = strings.TrimSpace(n.Recipient.String)
	}
	if n.RecipientUserID.Valid {
		route.RecipientUserID = n.RecipientUserID.UUID
	}

	if route.Channel == model.ChannelEmail && route.Scope == model.ScopeSingle && route.Recipient == "" {
		route.Recipient, _ = extractRecipient(n.Description.String)
	}

	return route, true
}

// legacyRoute sniffs the description for the markers the admin console
// writes: "Broadcast" selects every user, "Email to:" or "Broadcast Email"
// selects the email channel.
func legacyRoute(description string) model.Route {
	route := model.Route{
		Scope:   model.ScopeSingle,
		Channel: model.ChannelInApp,
		Legacy:  true,
	}

	if strings.Contains(description, "Broadcast") {
		route.Scope = model.ScopeBroadcast
	}

	if strings.Contains(description, "Email to:") || strings.Contains(description, "Broadcast Email") {
		route.Channel = model.ChannelEmail
	}

	if route.Channel == model.ChannelEmail && route.Scope == model.ScopeSingle {
		route.Recipient, _ = extractRecipient(description)
	}

	return route
}

// extractRecipient returns the address of the first "Email to:" line.
func extractRecipient(description string) (string, bool) {
	m := recipientPattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}

	addr := strings.TrimSpace(m[1])

	return addr, addr != ""
}

func stripRecipientPrefix(description string) string {
	return strings.TrimSpace(recipientPrefixPattern.ReplaceAllString(description, ""))
}

func stripBroadcastPrefix(description string) string {
	return strings.TrimSpace(broadcastPrefixPattern.ReplaceAllString(description, ""))
}
