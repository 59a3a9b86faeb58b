package apihttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tempo/internal/closer"
	"tempo/internal/engine"
	"tempo/internal/logger"
	"tempo/internal/preset"
	"tempo/internal/store"
	"tempo/internal/store/execlog"
)

// Router holds the handlers behind /api.
type Router struct {
	Engine  *engine.Engine
	Closer  *closer.Closer
	Presets *preset.Registry
	History *execlog.Store
}

func NewRouter(eng *engine.Engine, cl *closer.Closer, presets *preset.Registry, history *execlog.Store) *Router {
	return &Router{Engine: eng, Closer: cl, Presets: presets, History: history}
}

// Register mounts the API routes onto the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/schedule-order", r.handleScheduleOrder)
	group.GET("/scheduled-orders", r.handleListOrders)
	group.GET("/scheduled-orders/:id", r.handleOrderByID)
	group.DELETE("/scheduled-order/:id", r.handleCancelOrder)
	group.POST("/test-scheduled-order/:id", r.handleReplayOrder)
	group.POST("/close-position", r.handleClosePosition)
	if r.History != nil {
		group.GET("/history", r.handleHistory)
	}
	if r.Presets != nil {
		group.GET("/presets", r.handlePresets)
	}
}

func (r *Router) handleScheduleOrder(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body: " + err.Error()})
		return
	}
	req, presetID, err := parseCreateRequest(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if presetID != "" {
		if r.Presets == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "presets are not enabled"})
			return
		}
		merged, err := applyPreset(r.Presets, presetID, req, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req = merged
	}
	rec, err := r.Engine.Create(req)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("[api] scheduled order id=%s symbol=%s at=%s ip=%s", rec.ID, rec.Symbol, rec.ScheduledAt.Format(time.RFC3339), c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{
		"id":      rec.ID,
		"message": fmt.Sprintf("%s %s %s scheduled for %s", rec.Side, rec.Type, rec.Symbol, rec.ScheduledAt.Local().Format("2006-01-02 15:04:05")),
		"order":   rec,
	})
}

func (r *Router) handleListOrders(c *gin.Context) {
	orders := r.Engine.List()
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if strings.EqualFold(string(o.Status), status) {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (r *Router) handleOrderByID(c *gin.Context) {
	rec, ok := r.Engine.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": rec})
}

func (r *Router) handleCancelOrder(c *gin.Context) {
	out, err := r.Engine.Cancel(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("[api] cancel id=%s ip=%s pending_close=%v", c.Param("id"), c.ClientIP(), out.PendingCloseCancelled)
	c.JSON(http.StatusOK, gin.H{
		"order":   out.Record,
		"message": out.Message,
	})
}

func (r *Router) handleReplayOrder(c *gin.Context) {
	raw, _ := c.GetRawData()
	delay, shiftClose := parseReplayRequest(raw)
	rec, err := r.Engine.Reschedule(c.Param("id"), delay, shiftClose)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": rec})
}

func (r *Router) handleClosePosition(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body: " + err.Error()})
		return
	}
	symbol := parseCloseRequest(raw)
	if symbol == "" {
		symbol = strings.TrimSpace(c.Query("symbol"))
	}
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	out := r.Closer.Close(c.Request.Context(), strings.ToUpper(symbol))
	if out.Err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": out.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"closed":   out.Closed,
		"order_id": out.OrderID,
		"message":  out.Message,
	})
}

func (r *Router) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	entries, err := r.History.Recent(ctx, limit)
	if err != nil {
		logger.Errorf("[api] history query failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (r *Router) handlePresets(c *gin.Context) {
	snap := r.Presets.Snapshot()
	out := make([]preset.Preset, 0, len(snap.Presets))
	for _, p := range snap.Presets {
		out = append(out, p)
	}
	c.JSON(http.StatusOK, gin.H{
		"presets":   out,
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
	})
}

func respondError(c *gin.Context, err error) {
	var verr *engine.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled order not found"})
		return
	}
	var serr *store.InvalidStateError
	if errors.As(err, &serr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": serr.Error(), "status": serr.Status})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
