package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todoapi/internal/model"
	"todoapi/internal/service"
)

// userResponse 不包含密码哈希。
type userResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// handleCreateUser 创建用户，用户名或邮箱重复时返回 409。
//
// POST /users
func (s *Server) handleCreateUser(c *gin.Context) {
	var req service.UserCreate
	if !s.bindBody(c, schemaUserCreate, &req) {
		return
	}

	user, err := s.users.Create(c.Request.Context(), req)
	if errors.Is(err, service.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"detail": detailConflict})
		return
	}
	if err != nil {
		s.respondInternal(c, "create user failed", err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// handleListUsers GET /users
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.respondInternal(c, "list users failed", err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetUserByUsername GET /users/username/:username
func (s *Server) handleGetUserByUsername(c *gin.Context) {
	user, err := s.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.respondInternal(c, "get user by username failed", err)
		return
	}
	if user == nil {
		s.respondNotFound(c, detailUserNotFound)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (s *Server) loadUser(c *gin.Context) (*model.User, bool) {
	id, exists, ok := s.pathID(c, "id")
	if !ok {
		return nil, false
	}
	return s.findUser(c, id, exists)
}

func (s *Server) findUser(c *gin.Context, id int64, exists bool) (*model.User, bool) {
	if !exists {
		s.respondNotFound(c, detailUserNotFound)
		return nil, false
	}

	user, err := s.users.Get(c.Request.Context(), uint(id))
	if err != nil {
		s.respondInternal(c, "get user failed", err)
		return nil, false
	}
	if user == nil {
		s.respondNotFound(c, detailUserNotFound)
		return nil, false
	}
	return user, true
}

// handleGetUser GET /users/:id
func (s *Server) handleGetUser(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// handleUpdateUser 部分更新用户。
//
// PATCH /users/:id
func (s *Server) handleUpdateUser(c *gin.Context) {
	id, exists, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req service.UserUpdate
	if !s.bindBody(c, schemaUserUpdate, &req) {
		return
	}

	user, ok := s.findUser(c, id, exists)
	if !ok {
		return
	}
	updated, err := s.users.Update(c.Request.Context(), user, req)
	if errors.Is(err, service.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"detail": detailConflict})
		return
	}
	if err != nil {
		s.respondInternal(c, "update user failed", err)
		return
	}
	if updated == nil {
		s.respondNotFound(c, detailUserNotFound)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(updated))
}

// handleDeleteUser DELETE /users/:id
func (s *Server) handleDeleteUser(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	if err := s.users.Delete(c.Request.Context(), user); err != nil {
		s.respondInternal(c, "delete user failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
