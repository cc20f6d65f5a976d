package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todoapi/internal/model"
	"todoapi/internal/service"
)

type taskResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	DueDate     *model.Date       `json:"due_date"`
	Status      *model.TaskStatus `json:"status"`
	OwnerID     *int64            `json:"owner_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func newTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      t.Status,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskListResponse(tasks []model.Task) []taskResponse {
	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, newTaskResponse(&tasks[i]))
	}
	return resp
}

// handleCreateTask 创建任务。
//
// POST /tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req service.TaskCreate
	if !s.bindBody(c, schemaTaskCreate, &req) {
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), req)
	if err != nil {
		s.respondInternal(c, "create task failed", err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// handleListTasks 返回全部任务：未完成在前，按截止日期升序。
//
// GET /tasks
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		s.respondInternal(c, "list tasks failed", err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

// handleListOwnerTasks 返回指定用户的任务。用户不存在时返回空列表。
//
// GET /users/:id/tasks
func (s *Server) handleListOwnerTasks(c *gin.Context) {
	ownerID, _, ok := s.pathID(c, "owner_id")
	if !ok {
		return
	}
	tasks, err := s.tasks.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		s.respondInternal(c, "list owner tasks failed", err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

// loadTask 按路径 ID 加载任务，失败时已写出响应。
func (s *Server) loadTask(c *gin.Context) (*model.Task, bool) {
	id, exists, ok := s.pathID(c, "id")
	if !ok {
		return nil, false
	}
	return s.findTask(c, id, exists)
}

// findTask 查询已解析的任务 ID；id 非正数时不访问数据库。
func (s *Server) findTask(c *gin.Context, id int64, exists bool) (*model.Task, bool) {
	if !exists {
		s.respondNotFound(c, detailTaskNotFound)
		return nil, false
	}

	task, err := s.tasks.Get(c.Request.Context(), uint(id))
	if err != nil {
		s.respondInternal(c, "get task failed", err)
		return nil, false
	}
	if task == nil {
		s.respondNotFound(c, detailTaskNotFound)
		return nil, false
	}
	return task, true
}

// handleGetTask GET /tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.loadTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// handleUpdateTask 部分更新任务，只修改请求中出现的字段。
//
// 请求体校验先于查库，非法请求体不会触达 TaskStore。
//
// PATCH /tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, exists, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req service.TaskUpdate
	if !s.bindBody(c, schemaTaskUpdate, &req) {
		return
	}

	task, ok := s.findTask(c, id, exists)
	if !ok {
		return
	}
	updated, err := s.tasks.Update(c.Request.Context(), task, req)
	if err != nil {
		s.respondInternal(c, "update task failed", err)
		return
	}
	// 查询与更新之间被并发删除
	if updated == nil {
		s.respondNotFound(c, detailTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(updated))
}

// handleDeleteTask DELETE /tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	task, ok := s.loadTask(c)
	if !ok {
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), task); err != nil {
		s.respondInternal(c, "delete task failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
