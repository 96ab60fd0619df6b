package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0viii0viii/shelves/internal/store"
)

type contentBody struct {
	Content string `json:"content"`
}

func (s *Server) listTodos(c *gin.Context) {
	todos, err := s.Store.ListTodos(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (s *Server) createTodo(c *gin.Context) {
	var body contentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	t, err := s.Store.CreateTodo(c.Request.Context(), body.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTodo(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	var upd store.TodoUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.Store.UpdateTodo(ctx, id, upd); err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.Store.GetTodo(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) toggleTodo(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	t, err := s.Store.ToggleTodo(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTodo(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteTodo(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteCompletedTodos(c *gin.Context) {
	n, err := s.Store.DeleteCompletedTodos(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
