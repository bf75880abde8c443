// Package assistant manages the conversation with the hosted scheduling agent.
//
// A Session lazily creates the agent (the "Meeting Scheduler" assistant with
// its one calendar-lookup tool) and a conversation thread, then starts one
// run per user turn. The provider is reached through the Backend interface;
// OpenAIBackend implements it on top of the OpenAI Assistants API.
//
// The package also owns the tool contract: CalendarTool declares the
// getCalendarEvents function and ParseCalendarQuery turns the arguments of a
// tool call into a CalendarQuery.
package assistant
