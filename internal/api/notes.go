package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0viii0viii/shelves/internal/store"
)

type passwordBody struct {
	Password string `json:"password"`
	// Remove also clears the lock once the password matched.
	Remove bool `json:"remove"`
}

type orderBody struct {
	IDs []int64 `json:"ids" binding:"required"`
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.Store.ListNotes(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (s *Server) createNote(c *gin.Context) {
	var in store.NewNote
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, err)
		return
	}
	n, err := s.Store.CreateNote(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// respondNote answers with the current state of note id.
func (s *Server) respondNote(c *gin.Context, id int64) {
	n, err := s.Store.GetNote(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) updateNote(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	var upd store.NoteUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Store.UpdateNote(c.Request.Context(), id, upd); err != nil {
		s.fail(c, err)
		return
	}
	s.respondNote(c, id)
}

func (s *Server) deleteNote(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteNote(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) lockNote(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	var body passwordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Store.SetNoteLock(c.Request.Context(), id, true, body.Password); err != nil {
		s.fail(c, err)
		return
	}
	s.respondNote(c, id)
}

// unlockNote checks the password of a locked note. With remove set the lock
// is dropped as well; otherwise the note stays locked for the next visit.
func (s *Server) unlockNote(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	var body passwordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.Store.VerifyNotePassword(ctx, id, body.Password); err != nil {
		s.fail(c, err)
		return
	}
	if body.Remove {
		if err := s.Store.SetNoteLock(ctx, id, false, ""); err != nil {
			s.fail(c, err)
			return
		}
	}
	s.respondNote(c, id)
}

func (s *Server) reorderNotes(c *gin.Context) {
	var body orderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Store.ReorderNotes(c.Request.Context(), body.IDs); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotePasswordHeader carries the password of a locked note on requests that
// read its memos.
const NotePasswordHeader = "X-Note-Password"

// listMemos answers 401 for a locked note unless NotePasswordHeader matches.
func (s *Server) listMemos(c *gin.Context) {
	noteID, ok := s.id(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.Store.VerifyNotePassword(ctx, noteID, c.GetHeader(NotePasswordHeader)); err != nil {
		s.fail(c, err)
		return
	}
	memos, err := s.Store.ListMemos(ctx, noteID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, memos)
}

func (s *Server) createMemo(c *gin.Context) {
	noteID, ok := s.id(c)
	if !ok {
		return
	}
	var body contentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	m, err := s.Store.CreateMemo(c.Request.Context(), noteID, body.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) reorderMemos(c *gin.Context) {
	noteID, ok := s.id(c)
	if !ok {
		return
	}
	var body orderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Store.ReorderMemos(c.Request.Context(), noteID, body.IDs); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateMemo(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	var upd store.MemoUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Store.UpdateMemo(c.Request.Context(), id, upd); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteMemo(c *gin.Context) {
	id, ok := s.id(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteMemo(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
