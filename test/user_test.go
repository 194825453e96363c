package test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetAllUsers(t *testing.T) {
	app := CreateTestApp()

	_, token, _ := CreateTestMember(t, app)

	status, result := doJSON(t, app, "GET", "/api/v1/users/", token, nil)
	require.Equal(t, 200, status)
	require.NotEmpty(t, result["data"].([]interface{}))
}

func TestGetUserCached(t *testing.T) {
	app := CreateTestApp()

	username, token, userID := CreateTestMember(t, app)

	// Request pertama isi cache, kedua dilayani dari redis
	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/users/%d", userID), token, nil)
	require.Equal(t, 200, status)
	require.Equal(t, username, result["data"].(map[string]interface{})["username"])

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/users/%d", userID), token, nil)
	require.Equal(t, 200, status)
	require.Equal(t, username, result["data"].(map[string]interface{})["username"])
	require.Contains(t, result["message"], "cache")
}

func TestGetUserNotFound(t *testing.T) {
	app := CreateTestApp()

	_, token, _ := CreateTestMember(t, app)

	status, _ := doJSON(t, app, "GET", "/api/v1/users/999999", token, nil)
	require.Equal(t, 404, status)
}

func TestDeleteUserSelfOnly(t *testing.T) {
	app := CreateTestApp()

	_, tokenA, _ := CreateTestMember(t, app)
	_, tokenB, idB := CreateTestMember(t, app)

	// Menghapus akun orang lain ditolak
	status, _ := doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/users/%d", idB), tokenA, nil)
	require.Equal(t, 403, status)

	// Menghapus akun sendiri boleh
	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/users/%d", idB), tokenB, nil)
	require.Equal(t, 200, status)

	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/users/%d", idB), tokenA, nil)
	require.Equal(t, 404, status)
}
