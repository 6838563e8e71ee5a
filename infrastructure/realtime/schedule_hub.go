package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
)

// ScheduleStatusEvent represents an SSE payload for schedule status updates.
type ScheduleStatusEvent struct {
	Type      string  `json:"type"`
	ID        int64   `json:"id"`
	ContentID string  `json:"content_id"`
	PostIndex int     `json:"post_index"`
	Status    string  `json:"status"`
	Error     *string `json:"error,omitempty"`
}

// Hub maintains per-account subscribers listening for schedule status events.
type Hub struct {
	mu       sync.RWMutex
	accounts map[string]map[chan ScheduleStatusEvent]struct{}
}

func NewScheduleHub() *Hub {
	return &Hub{accounts: make(map[string]map[chan ScheduleStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated account (account_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	accountID := c.GetString("account_id")
	if accountID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan ScheduleStatusEvent, 8)
	h.addSubscriber(accountID, ch)
	defer h.removeSubscriber(accountID, ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	notify := c.Writer.CloseNotify()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: schedule_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(accountID string, ch chan ScheduleStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.accounts[accountID] == nil {
		h.accounts[accountID] = make(map[chan ScheduleStatusEvent]struct{})
	}
	h.accounts[accountID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(accountID string, ch chan ScheduleStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.accounts[accountID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.accounts, accountID)
		}
	}
}

// BroadcastScheduleStatus broadcasts to all subscribers of the owning account.
func (h *Hub) BroadcastScheduleStatus(post *model.ScheduledPost) {
	if post == nil {
		return
	}
	evt := ScheduleStatusEvent{
		Type:      "schedule_status",
		ID:        post.ID,
		ContentID: post.ContentID,
		PostIndex: post.PostIndex,
		Status:    post.Status,
		Error:     post.ErrorMessage,
	}
	h.mu.RLock()
	subs := h.accounts[post.AccountID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
