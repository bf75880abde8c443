package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/google"
)

func TestServerContext_Shutdown(t *testing.T) {
	cal := calendar.NewClient(google.NewFileTokenProvider(t.TempDir() + "/token.json"))
	sc := NewServerContext(context.Background(), cal)

	assert.Same(t, cal, sc.CalendarClient())
	assert.False(t, sc.IsShutdown())
	assert.Equal(t, time.Local, sc.Location())
	assert.NotNil(t, sc.Logger())
	assert.Nil(t, sc.Metrics())

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())

	// A second shutdown is a no-op.
	require.NoError(t, sc.Shutdown())
}

func TestServerContext_Options(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	sc := NewServerContext(context.Background(), nil, WithLocation(loc), WithLocation(nil), WithLogger(nil))
	assert.Equal(t, loc, sc.Location())
	assert.NotNil(t, sc.Logger())
}
