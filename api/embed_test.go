package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidatesSpec(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DarTeve API", doc.Info.Title)

	for _, path := range []string{
		"/api/health",
		"/api/categories",
		"/api/categories/{id}/channels",
		"/api/matches",
		"/api/sessions",
		"/api/sessions/{id}/events",
		"/api/radio/stations",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}
