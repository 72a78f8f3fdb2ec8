package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/mapdata"
	"github.com/ppiankov/acmap/internal/model"
	"go.uber.org/zap"
)

// searchResponse is returned by the search endpoints
type searchResponse struct {
	Count     int              `json:"count"`
	Criteria  model.Criteria   `json:"criteria"`
	Accidents []model.Accident `json:"accidents"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"Settings": s.settings,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"loaded":      s.store.Loaded(),
		"subscribers": s.feed.Subscribers(),
		"time":        time.Now().Format(time.RFC3339),
	})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings)
}

func (s *Server) getAccidents(c *gin.Context) {
	var criteria model.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accidents, ok := s.filter(c, criteria)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, searchResponse{Count: len(accidents), Criteria: criteria, Accidents: accidents})
}

// search filters the list and replaces the displayed markers
func (s *Server) search(c *gin.Context) {
	var criteria model.Criteria
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&criteria); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s.feed.ShowSpinner()
	defer s.feed.HideSpinner()

	accidents, ok := s.filter(c, criteria)
	if !ok {
		return
	}
	s.feed.Update(accidents)

	s.log.Info("Search published",
		zap.Any("criteria", criteria),
		zap.Int("count", len(accidents)),
	)
	c.JSON(http.StatusOK, searchResponse{Count: len(accidents), Criteria: criteria, Accidents: accidents})
}

// filter loads the list when needed; it writes the error response and
// returns false on failure
func (s *Server) filter(c *gin.Context, criteria model.Criteria) ([]model.Accident, bool) {
	if _, err := s.load(c.Request.Context()); err != nil {
		s.log.Error("Failed to load accidents", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve accidents"})
		return nil, false
	}

	accidents, err := s.store.Filter(criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return accidents, true
}

func (s *Server) facet(f filter.Facet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.load(c.Request.Context()); err != nil {
			s.log.Error("Failed to load accidents", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve accidents"})
			return
		}

		values, err := s.store.Facet(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, values)
	}
}

// getMarkers returns the displayed set as GeoJSON, falling back to the
// full list before the first search
func (s *Server) getMarkers(c *gin.Context) {
	accidents, ok := s.feed.Current()
	if !ok {
		all, err := s.load(c.Request.Context())
		if err != nil {
			s.log.Error("Failed to load accidents", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve accidents"})
			return
		}
		accidents = all
	}

	c.JSON(http.StatusOK, s.markers.Build(accidents))
}

func (s *Server) resetZoom(c *gin.Context) {
	s.feed.ResetZoom()
	c.Status(http.StatusNoContent)
}

// stream relays feed events as server-sent events until the client leaves
// or the feed closes
func (s *Server) stream(c *gin.Context) {
	events, cancel := s.feed.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), s.eventPayload(ev))
			return true
		}
	})
}

func (s *Server) eventPayload(ev mapdata.Event) any {
	switch ev.Type {
	case mapdata.EventAccidents:
		return s.markers.Build(ev.Accidents)
	case mapdata.EventLoading:
		return gin.H{"loading": ev.Loading}
	default:
		return gin.H{}
	}
}
