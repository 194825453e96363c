package test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func taskBody(title string, assignees ...string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "integration test task",
		"priority":    1,
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"assignees":   assignees,
	}
}

func createTestTask(t *testing.T, app *fiber.App, projectID int, token, title string, assignees ...string) (int, []interface{}) {
	t.Helper()

	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/v1/projects/%d/tasks", projectID), token,
		taskBody(title, assignees...))
	require.Equal(t, 201, status)

	data := result["data"].(map[string]interface{})
	skipped, _ := data["skipped_assignees"].([]interface{})
	return int(data["id"].(float64)), skipped
}

func TestCreateTaskWithAssignees(t *testing.T) {
	app := CreateTestApp()

	adminName, adminToken, _ := CreateTestMember(t, app)
	memberName, memberToken, _ := CreateTestMember(t, app)

	projectID := createTestProject(t, app, adminToken)
	inviteAndAccept(t, app, projectID, adminToken, memberName, memberToken, 1)

	taskID, skipped := createTestTask(t, app, projectID, adminToken, "assigned task", adminName, memberName)
	require.Greater(t, taskID, 0)
	require.Empty(t, skipped)

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), memberToken, nil)
	require.Equal(t, 200, status)
	task := result["data"].(map[string]interface{})
	assignees := task["assignees"].([]interface{})
	require.Len(t, assignees, 2)
	info := task["info"].(map[string]interface{})
	require.Equal(t, float64(0), info["status"]) // task baru selalu OPEN
}

func TestCreateTaskSkipsInvalidAssignees(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	outsiderName, _, _ := CreateTestMember(t, app)

	projectID := createTestProject(t, app, adminToken)

	// Bukan anggota dan nama tak dikenal: keduanya di-skip, task tetap dibuat
	taskID, skipped := createTestTask(t, app, projectID, adminToken, "partial assign", outsiderName, "no_such_user")
	require.Greater(t, taskID, 0)
	require.Len(t, skipped, 2)

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	task := result["data"].(map[string]interface{})
	require.Empty(t, task["assignees"].([]interface{}))
}

func TestListProjectTasks(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)

	createTestTask(t, app, projectID, adminToken, "first")
	createTestTask(t, app, projectID, adminToken, "second")

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/projects/%d/tasks", projectID), adminToken, nil)
	require.Equal(t, 200, status)
	require.Len(t, result["data"].([]interface{}), 2)
}

func TestSubtasks(t *testing.T) {
	app := CreateTestApp()

	adminName, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)
	taskID, _ := createTestTask(t, app, projectID, adminToken, "parent")

	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/v1/tasks/%d/subtasks", taskID), adminToken,
		taskBody("child", adminName))
	require.Equal(t, 201, status)
	subtaskID := int(result["data"].(map[string]interface{})["id"].(float64))

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d/subtasks", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	subtasks := result["data"].([]interface{})
	require.Len(t, subtasks, 1)
	require.Equal(t, float64(subtaskID), subtasks[0].(map[string]interface{})["id"])

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/subtasks/%d", subtaskID), adminToken, nil)
	require.Equal(t, 200, status)

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d/subtasks", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	require.Empty(t, result["data"].([]interface{}))
}

func TestUpdateTaskInfo(t *testing.T) {
	app := CreateTestApp()

	adminName, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)
	taskID, _ := createTestTask(t, app, projectID, adminToken, "before edit")

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	infoID := int(result["data"].(map[string]interface{})["info"].(map[string]interface{})["id"].(float64))

	newDeadline := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/task-infos/%d", infoID), adminToken,
		map[string]interface{}{
			"title":       "after edit",
			"description": "rewritten",
			"priority":    2,
			"deadline":    newDeadline.Format(time.RFC3339),
			"assignees":   []string{adminName},
		})
	require.Equal(t, 200, status)

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	task := result["data"].(map[string]interface{})
	info := task["info"].(map[string]interface{})
	require.Equal(t, "after edit", info["title"])
	require.Equal(t, "rewritten", info["description"])
	require.Equal(t, float64(2), info["priority"])
	require.Len(t, task["assignees"].([]interface{}), 1)
}

func TestUpdateTaskInfoNotFound(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)
	createTestTask(t, app, projectID, adminToken, "anchor")

	status, _ := doJSON(t, app, "PUT", "/api/v1/task-infos/999999", adminToken, taskBody("ghost"))
	require.Equal(t, 404, status)
}

func TestTaskStatusRoundTrip(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)
	taskID, _ := createTestTask(t, app, projectID, adminToken, "toggled")

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	infoID := int(result["data"].(map[string]interface{})["info"].(map[string]interface{})["id"].(float64))

	// OPEN -> DONE
	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/task-infos/%d/status", infoID), adminToken,
		map[string]interface{}{"status": 1})
	require.Equal(t, 200, status)

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	require.Equal(t, float64(1), result["data"].(map[string]interface{})["info"].(map[string]interface{})["status"])

	// DONE -> OPEN (dua arah)
	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/task-infos/%d/status", infoID), adminToken,
		map[string]interface{}{"status": 0})
	require.Equal(t, 200, status)

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)
	require.Equal(t, float64(0), result["data"].(map[string]interface{})["info"].(map[string]interface{})["status"])

	// Nilai di luar 0/1 ditolak
	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/task-infos/%d/status", infoID), adminToken,
		map[string]interface{}{"status": 5})
	require.Equal(t, 400, status)
}

func TestDeleteTaskCascades(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	projectID := createTestProject(t, app, adminToken)
	taskID, _ := createTestTask(t, app, projectID, adminToken, "doomed")

	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/v1/tasks/%d/subtasks", taskID), adminToken,
		taskBody("doomed child"))
	require.Equal(t, 201, status)
	subtaskID := int(result["data"].(map[string]interface{})["id"].(float64))

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 200, status)

	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), adminToken, nil)
	require.Equal(t, 404, status)

	// Subtask ikut terhapus
	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/subtasks/%d", subtaskID), adminToken, nil)
	require.Equal(t, 404, status)
}

func TestReadPermissionCannotMutate(t *testing.T) {
	app := CreateTestApp()

	_, adminToken, _ := CreateTestMember(t, app)
	readerName, readerToken, _ := CreateTestMember(t, app)

	projectID := createTestProject(t, app, adminToken)
	inviteAndAccept(t, app, projectID, adminToken, readerName, readerToken, 0)

	taskID, _ := createTestTask(t, app, projectID, adminToken, "read only")

	status, result := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), readerToken, nil)
	require.Equal(t, 200, status)
	infoID := int(result["data"].(map[string]interface{})["info"].(map[string]interface{})["id"].(float64))

	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/task-infos/%d/status", infoID), readerToken,
		map[string]interface{}{"status": 1})
	require.Equal(t, 403, status)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/tasks/%d", taskID), readerToken, nil)
	require.Equal(t, 403, status)
}
