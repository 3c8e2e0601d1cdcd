package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/column"
	"github.com/LJTian/NewsNow/internal/preference"
	"github.com/LJTian/NewsNow/internal/registry"
	"github.com/LJTian/NewsNow/internal/storage"
)

// LiveCollector 实时抓取单个数据源并落库，由调度器实现
type LiveCollector interface {
	Collect(ctx context.Context, id string) ([]collector.Item, error)
}

type Server struct {
	reg        *registry.Registry
	meta       column.Metadata
	repo       storage.Repository
	live       LiveCollector
	prefs      *preference.Store
	reconciler *preference.Reconciler
	now        func() time.Time
}

func NewServer(reg *registry.Registry, repo storage.Repository, live LiveCollector, prefs *preference.Store, reconciler *preference.Reconciler) *Server {
	return &Server{
		reg:        reg,
		meta:       column.Compose(reg),
		repo:       repo,
		live:       live,
		prefs:      prefs,
		reconciler: reconciler,
		now:        time.Now,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/columns", s.listColumns)
		v1.GET("/sources", s.listSources)
		v1.GET("/s", s.getSource)
		v1.GET("/s/rss", s.getSourceRSS)

		v1.GET("/preference", s.getPreference)
		v1.PUT("/preference", s.putPreference)
		v1.POST("/preference/reconcile", s.reconcilePreference)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type columnView struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Fixed   bool     `json:"fixed"`
	Sources []string `json:"sources"`
}

func (s *Server) listColumns(c *gin.Context) {
	out := make([]columnView, 0, len(column.Specs))
	for _, spec := range column.Specs {
		col := s.meta[spec.ID]
		sources := col.Sources
		if sources == nil {
			sources = []string{}
		}
		out = append(out, columnView{ID: spec.ID, Name: col.Name, Fixed: column.IsFixed(spec.ID), Sources: sources})
	}
	ok(c, out)
}

func (s *Server) listSources(c *gin.Context) {
	ok(c, s.reg.All())
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
