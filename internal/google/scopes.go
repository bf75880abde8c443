package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultOAuthScopes are the scopes requested during authorization.
// Read access to events is all the scheduler needs.
var DefaultOAuthScopes = []string{
	calendar.CalendarReadonlyScope,
}
