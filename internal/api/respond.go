package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	detailTaskNotFound = "Task not found"
	detailUserNotFound = "User not found"
	detailConflict     = "Username or Email already exists"
)

// bindBody 读取请求体并按 schema 校验、解码。失败时已写出响应。
func (s *Server) bindBody(c *gin.Context, schema string, dst interface{}) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.respondValidation(c, &validationError{Detail: []fieldError{{
			Loc: []interface{}{"body"}, Msg: "unable to read request body", Type: "value_error",
		}}})
		return false
	}

	if err := s.schemas.decode(schema, body, dst); err != nil {
		var ve *validationError
		if errors.As(err, &ve) {
			s.respondValidation(c, ve)
			return false
		}
		s.respondInternal(c, "decode request body failed", err)
		return false
	}
	return true
}

// pathID 解析路径中的整数 ID。非整数返回 422；小于 1 的 ID 不可能存在，ok=true 但 exists=false。
func (s *Server) pathID(c *gin.Context, name string) (id int64, exists bool, ok bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondValidation(c, &validationError{Detail: []fieldError{{
			Loc:  []interface{}{"path", name},
			Msg:  "value is not a valid integer",
			Type: "int_parsing",
		}}})
		return 0, false, false
	}
	return id, id > 0, true
}

func (s *Server) respondValidation(c *gin.Context, ve *validationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": ve.Detail})
}

func (s *Server) respondNotFound(c *gin.Context, detail string) {
	c.JSON(http.StatusNotFound, gin.H{"detail": detail})
}

func (s *Server) respondInternal(c *gin.Context, msg string, err error) {
	s.logger.Error(msg,
		slog.String("error", err.Error()),
		slog.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
}
