package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/locallibrary/internal/tasks"
)

// TaskQueue enqueues background work and reports its progress. *tasks.Client satisfies it.
type TaskQueue interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskTypes = []TaskTypeInfo{
	{Type: tasks.CleanupAuditEventsQueue, Description: "Remove audit events older than the retention period"},
}

type runTaskRequest struct {
	RetentionDays int `json:"retention_days" binding:"omitempty,min=1"`
}

// TasksController lets administrators trigger and inspect background tasks.
type TasksController struct {
	queue TaskQueue
}

func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// ListTaskTypes returns the tasks that can be run on demand.
// GET /admin/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": taskTypes})
}

// RunTask enqueues a task of the given type.
// POST /admin/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	var req runTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
	}

	var task backlite.Task
	switch taskType := c.Param("type"); taskType {
	case tasks.CleanupAuditEventsQueue:
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}
	default:
		respondNotFound(c, "task type")
		return
	}

	ids, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": ids[0], "type": c.Param("type")})
}

// GetTaskStatus reports a task's state.
// GET /admin/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": taskStatusName(status)})
}

func taskStatusName(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}
