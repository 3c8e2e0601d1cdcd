package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/registry"
	"github.com/LJTian/NewsNow/internal/scheduler"
)

// 数据来源：本次实时抓取，或者数据库中的快照
const (
	statusSuccess = "success"
	statusCache   = "cache"
)

type sourceView struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	UpdatedTime int64            `json:"updatedTime"`
	Items       []collector.Item `json:"items"`
}

var errUnknownSource = errors.New("unknown source")

// loadSource 快照未超过轮询周期时直接返回；否则实时抓取，抓取失败再回落到旧快照
func (s *Server) loadSource(ctx context.Context, rawID string, latest bool) (registry.Descriptor, sourceView, error) {
	id := s.reg.Resolve(rawID)
	d, found := s.reg.Get(id)
	if !found {
		return registry.Descriptor{}, sourceView{}, errUnknownSource
	}

	snap, cached, err := s.repo.LatestSnapshot(ctx, id)
	if err != nil {
		log.WithField("source", id).Warnf("load snapshot error: %v", err)
		cached = false
	}
	cacheView := sourceView{ID: id, Status: statusCache, UpdatedTime: snap.FetchedAt.UnixMilli(), Items: snap.Items}
	if cached && !latest && s.now().Sub(snap.FetchedAt) < d.Interval {
		return d, cacheView, nil
	}

	items, err := s.live.Collect(ctx, id)
	if err != nil {
		if cached {
			return d, cacheView, nil
		}
		return d, sourceView{}, err
	}
	return d, sourceView{ID: id, Status: statusSuccess, UpdatedTime: s.now().UnixMilli(), Items: items}, nil
}

func (s *Server) sourceFromQuery(c *gin.Context) (registry.Descriptor, sourceView, bool) {
	id := c.Query("id")
	if id == "" {
		fail(c, http.StatusBadRequest, "invalid_param", "missing id")
		return registry.Descriptor{}, sourceView{}, false
	}
	latest, _ := strconv.ParseBool(c.DefaultQuery("latest", "false"))

	d, view, err := s.loadSource(c.Request.Context(), id, latest)
	switch {
	case errors.Is(err, errUnknownSource), errors.Is(err, scheduler.ErrNoFetcher):
		fail(c, http.StatusNotFound, "invalid_source", "unknown source: "+id)
		return d, view, false
	case err != nil:
		log.WithField("source", id).Warnf("serve source error: %v", err)
		fail(c, http.StatusBadGateway, "fetch_failed", "fetch source failed")
		return d, view, false
	}
	return d, view, true
}

func (s *Server) getSource(c *gin.Context) {
	if _, view, found := s.sourceFromQuery(c); found {
		ok(c, view)
	}
}

// getSourceRSS 以 RSS 2.0 输出单个数据源
func (s *Server) getSourceRSS(c *gin.Context) {
	d, view, found := s.sourceFromQuery(c)
	if !found {
		return
	}

	feed := &feeds.Feed{
		Title:       d.DisplayName(),
		Link:        &feeds.Link{Href: d.Home},
		Description: d.DisplayName() + " - NewsNow",
		Updated:     time.UnixMilli(view.UpdatedTime),
	}
	for _, it := range view.Items {
		item := &feeds.Item{
			Id:    it.ID,
			Title: it.Title,
			Link:  &feeds.Link{Href: it.URL},
		}
		if it.PublishedAt != nil {
			item.Created = time.UnixMilli(*it.PublishedAt)
		}
		if hover, isStr := it.Extra[collector.ExtraHover].(string); isStr {
			item.Description = hover
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
