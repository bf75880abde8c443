// Package calendar reads participants' Google calendars.
//
// The accessor answers one question: which intervals is a participant busy
// between two instants. Events are fetched with recurring series expanded
// into single occurrences, ordered by start time, and rendered as
// "From <start> To <end>" using the provider's own date or date-time text.
//
// A window without events is an explicit empty BusyResult. Provider failures
// are reported as *ProviderError and never collapse into an empty result;
// transient failures (HTTP 429, 5xx, network errors) are retried with
// exponential backoff first.
//
// Example usage:
//
//	client := calendar.NewClient(google.NewFileTokenProvider("token.json"))
//	busy, err := client.BusyIntervals(ctx, "a@example.com", time.Time{}, time.Time{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, line := range busy.Lines() {
//	    fmt.Println(line)
//	}
package calendar
