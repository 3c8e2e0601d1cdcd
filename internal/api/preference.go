package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/NewsNow/internal/preference"
)

const (
	clientIDHeader  = "X-Client-ID"
	maxPreferenceKB = 64
)

// clientID 读取请求头里的客户端 ID；缺失或不是 UUID 时签发新的，并通过响应头返回
func clientID(c *gin.Context) string {
	if id, err := uuid.Parse(c.GetHeader(clientIDHeader)); err == nil {
		return id.String()
	}
	id := uuid.NewString()
	c.Header(clientIDHeader, id)
	return id
}

func readDocument(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreferenceKB<<10+1))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_body", "read body failed")
		return nil, false
	}
	if len(raw) > maxPreferenceKB<<10 {
		fail(c, http.StatusRequestEntityTooLarge, "invalid_body", "preference document too large")
		return nil, false
	}
	return raw, true
}

func (s *Server) getPreference(c *gin.Context) {
	key := clientID(c)
	p, err := s.prefs.Load(c.Request.Context(), key)
	if err != nil {
		log.WithField("client", key).Warnf("load preference error: %v", err)
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, p)
}

// putPreference 保存客户端偏好，updatedTime 不大于已存值时忽略，saved 为 false
func (s *Server) putPreference(c *gin.Context) {
	key := clientID(c)
	raw, readOK := readDocument(c)
	if !readOK {
		return
	}
	p, err := preference.Parse(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_preference", err.Error())
		return
	}
	p.Action = preference.ActionManual

	saved, err := s.prefs.Save(c.Request.Context(), key, s.reconciler.Reconcile(p))
	if err != nil {
		log.WithField("client", key).Warnf("save preference error: %v", err)
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	current, err := s.prefs.Load(c.Request.Context(), key)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, gin.H{"saved": saved, "preference": current})
}

// reconcilePreference 不落库，只把客户端持有的文档合并到当前栏目
func (s *Server) reconcilePreference(c *gin.Context) {
	raw, readOK := readDocument(c)
	if !readOK {
		return
	}
	ok(c, s.reconciler.Load(raw))
}
