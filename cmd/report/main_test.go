package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

func TestBuildRequestDefaultsToMarketplace(t *testing.T) {
	req, err := buildRequest("", "", "")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, req.ActorRole)
	assert.True(t, req.From.IsZero())
	assert.True(t, req.To.IsZero())
}

func TestBuildRequestInclusiveEnd(t *testing.T) {
	req, err := buildRequest("2026-05-01", "2026-05-31", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), req.From)
	assert.Equal(t, time.Date(2026, 5, 31, 23, 59, 59, 999999999, time.UTC), req.To)
}

func TestBuildRequestScopesToFarmer(t *testing.T) {
	id := uuid.New()
	req, err := buildRequest("", "", id.String())
	require.NoError(t, err)
	assert.Equal(t, enums.RoleFarmer, req.ActorRole)
	assert.Equal(t, id, req.ActorID)

	_, err = buildRequest("", "", "not-a-uuid")
	assert.Error(t, err)
	_, err = buildRequest("05/01/2026", "", "")
	assert.Error(t, err)
}
