package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetingscheduler/internal/server"
)

// ProfileURI identifies the operator profile resource.
const ProfileURI = "scheduler://profile"

// RegisterProfileResources registers the operator profile resource
func RegisterProfileResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Operator Profile",
		mcp.WithResourceDescription("Who meetings are scheduled for: name, email, time zone and working hours"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})

	return nil
}

type profileData struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Timezone     string `json:"timezone"`
	WorkingHours struct {
		Start string `json:"start,omitempty"`
		End   string `json:"end,omitempty"`
	} `json:"workingHours"`
	Now         string `json:"now"`
	Description string `json:"description"`
}

func handleProfile(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	profile := sc.Profile()
	loc := sc.Location()

	data := profileData{
		Name:        profile.Name,
		Email:       profile.Email,
		Timezone:    loc.String(),
		Now:         time.Now().In(loc).Format(time.RFC3339),
		Description: "Meetings are proposed within these working hours, in this time zone",
	}
	data.WorkingHours.Start = profile.WorkStart
	data.WorkingHours.End = profile.WorkEnd

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
