package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/perscom/personnel-api/internal/models"
)

func TestActivityLogRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t, &models.ActivityLog{})
	repo := NewActivityLogRepository(db)

	adminID := uint(1)
	userID := uint(2)
	target := uint(9)

	entries := []models.ActivityLog{
		{ActorType: models.ActorTypeAdmin, AdminID: &adminID, Action: models.ActionUserApproved, Description: "Approved user 9", TargetUserID: &target, IPAddress: "10.0.0.1", UserAgent: "test"},
		{ActorType: models.ActorTypeUser, UserID: &userID, Action: models.ActionLogin, Description: "Logged in", IPAddress: "10.0.0.2", UserAgent: "test"},
		{ActorType: models.ActorTypeSystem, Action: models.ActionAccountLocked, Description: "Account locked", TargetUserID: &target, IPAddress: "unknown", UserAgent: "unknown"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(context.Background(), &entries[i]))
	}

	all, total, err := repo.List(context.Background(), ActivityLogFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)

	admins, total, err := repo.List(context.Background(), ActivityLogFilter{ActorType: models.ActorTypeAdmin})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.ActionUserApproved, admins[0].Action)

	logins, total, err := repo.List(context.Background(), ActivityLogFilter{Action: models.ActionLogin})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.ActorTypeUser, logins[0].ActorType)

	targeted, total, err := repo.List(context.Background(), ActivityLogFilter{TargetUserID: &target})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, targeted, 2)

	paged, total, err := repo.List(context.Background(), ActivityLogFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestActivityLogRepositoryPersistsMetadata(t *testing.T) {
	db := setupTestDB(t, &models.ActivityLog{})
	repo := NewActivityLogRepository(db)

	userID := uint(4)
	entry := models.ActivityLog{
		ActorType: models.ActorTypeUser,
		UserID:    &userID,
		Action:    models.ActionProfileUpdate,
		IPAddress: "10.0.0.3",
		UserAgent: "test",
		Metadata: datatypes.JSONMap{
			"method": "PUT",
			"path":   "/api/v1/users/me",
			"body":   []interface{}{"rank", "unit"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), &entry))

	stored, _, err := repo.List(context.Background(), ActivityLogFilter{Action: models.ActionProfileUpdate})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "PUT", stored[0].Metadata["method"])
	require.Equal(t, "/api/v1/users/me", stored[0].Metadata["path"])

	keys, ok := stored[0].Metadata["body"].([]interface{})
	require.True(t, ok)
	require.ElementsMatch(t, []interface{}{"rank", "unit"}, keys)
}
