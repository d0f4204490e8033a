package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leadscout/pkg/dedup"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
)

// SubmissionLookup resolves a post id into its content
type SubmissionLookup interface {
	Submission(ctx context.Context, id string) (*models.ContentItem, error)
}

// Handler serves the persisted artifacts
type Handler struct {
	store        dedup.Store
	snapshotPath string
	lookup       SubmissionLookup
	logger       logger.Logger
	started      time.Time
}

// NewHandler creates a handler. lookup may be nil, which disables expand.
func NewHandler(store dedup.Store, snapshotPath string, lookup SubmissionLookup, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{
		store:        store,
		snapshotPath: snapshotPath,
		lookup:       lookup,
		logger:       logger.ForComponent(log, "api"),
		started:      time.Now(),
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Leads lists seen post ids, newest last. With expand=true each id is
// resolved through the Reddit API.
func (h *Handler) Leads(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	state, ok := h.loadState(c)
	if !ok {
		return
	}

	ids := tail(state.PostIDs(), limit)
	resp := LeadsResponse{Count: len(ids), IDs: ids}

	if c.Query("expand") == "true" {
		if h.lookup == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expand requires Reddit API credentials"})
			return
		}
		for _, id := range ids {
			item, err := h.lookup.Submission(c.Request.Context(), id)
			if err != nil {
				h.logger.WarnWithFields("Lead lookup failed", map[string]interface{}{
					"post_id": id,
					"error":   err.Error(),
				})
				continue
			}
			resp.Leads = append(resp.Leads, Lead{
				ID:        item.ID,
				Author:    item.AuthorName,
				Subreddit: item.Subreddit,
				Title:     item.Title,
				URL:       item.URL,
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Users lists seen usernames, newest last
func (h *Handler) Users(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	state, ok := h.loadState(c)
	if !ok {
		return
	}
	users := tail(state.Usernames(), limit)
	c.JSON(http.StatusOK, UsersResponse{Count: len(users), Users: users})
}

// ActiveUsers returns the latest ranked snapshot
func (h *Handler) ActiveUsers(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	users, err := dedup.ReadSnapshot(h.snapshotPath)
	if err != nil {
		h.logger.ErrorWithFields("Snapshot read failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "snapshot unavailable"})
		return
	}
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	c.JSON(http.StatusOK, ActiveUsersResponse{Count: len(users), Users: users})
}

func (h *Handler) loadState(c *gin.Context) (*dedup.State, bool) {
	state, err := h.store.Load(c.Request.Context())
	if err != nil {
		h.logger.ErrorWithFields("State load failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "state unavailable"})
		return nil, false
	}
	return state, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

// tail keeps the last n entries; n <= 0 keeps all
func tail(values []string, n int) []string {
	if n > 0 && len(values) > n {
		return values[len(values)-n:]
	}
	return values
}
