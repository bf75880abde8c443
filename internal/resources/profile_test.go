package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/server"
)

func TestHandleProfile(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	sc := server.NewServerContext(context.Background(), nil, server.WithProfile(assistant.Profile{
		Name:      "Asha",
		Email:     "asha@example.com",
		Location:  loc,
		WorkStart: "10:00",
		WorkEnd:   "19:30",
	}))
	defer sc.Shutdown()

	request := mcp.ReadResourceRequest{}
	request.Params.URI = ProfileURI

	contents, err := handleProfile(context.Background(), request, sc)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, ProfileURI, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	assert.Equal(t, "Asha", got["name"])
	assert.Equal(t, "asha@example.com", got["email"])
	assert.Equal(t, "Asia/Kolkata", got["timezone"])
	assert.Equal(t, map[string]any{"start": "10:00", "end": "19:30"}, got["workingHours"])
	assert.Contains(t, got["now"], "+05:30")
}

func TestHandleProfile_Unset(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, server.WithLocation(time.UTC))
	defer sc.Shutdown()

	request := mcp.ReadResourceRequest{}
	request.Params.URI = ProfileURI

	contents, err := handleProfile(context.Background(), request, sc)
	require.NoError(t, err)

	text := contents[0].(*mcp.TextResourceContents)
	assert.NotContains(t, text.Text, `"name"`)
	assert.Contains(t, text.Text, `"timezone": "UTC"`)
}

func TestRegisterProfileResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	sc := server.NewServerContext(context.Background(), nil)
	defer sc.Shutdown()

	assert.NoError(t, RegisterProfileResources(s, sc))
}
