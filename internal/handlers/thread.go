package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// ThreadHandler manages the conversation endpoints.
type ThreadHandler struct {
	threadRepo  repositories.ThreadRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewThreadHandler builds a ThreadHandler.
func NewThreadHandler(threadRepo repositories.ThreadRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ThreadHandler {
	return &ThreadHandler{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		hub:         hub,
		audit:       audit,
	}
}

// ListThreads returns the viewer's conversation list, most recently active
// first, annotated with counterparty, last message and unread count.
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	viewerID := c.GetInt("userID")

	threads, err := h.threadRepo.ListThreads(c.Request.Context(), viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load threads"})
		return
	}

	threadIDs := make([]int, 0, len(threads))
	counterpartyIDs := make([]int, 0, len(threads))
	seen := map[int]struct{}{}
	for _, thread := range threads {
		threadIDs = append(threadIDs, thread.ID)
		other := thread.Counterparty(viewerID)
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			counterpartyIDs = append(counterpartyIDs, other)
		}
	}

	lastMessages, err := h.messageRepo.LastMessages(c.Request.Context(), threadIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	unreadCounts, err := h.messageRepo.UnreadCounts(c.Request.Context(), threadIDs, viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread counts"})
		return
	}

	// Counterparty resolution is allowed to fail without dropping threads
	// from the list; those summaries carry a null counterparty instead.
	profileByID := map[int]models.Profile{}
	profiles, err := h.profileRepo.BulkProfiles(c.Request.Context(), counterpartyIDs)
	if err != nil {
		log.Printf("counterparty profile resolution failed: %v", err)
		h.audit.Emit(c.Request.Context(), "WARN", "counterparty profile resolution failed: "+err.Error(), requestIDFromContext(c), userIDFromContext(c))
	} else {
		for _, p := range profiles {
			profileByID[p.UserID] = p
		}
	}

	summaries := make([]models.ThreadSummary, 0, len(threads))
	for _, thread := range threads {
		summary := models.ThreadSummary{
			ThreadID:      thread.ID,
			Subject:       thread.Subject,
			ListingID:     thread.ListingID,
			Status:        thread.Status,
			UnreadCount:   unreadCounts[thread.ID],
			LastMessageAt: thread.LastMessageAt,
		}
		if profile, ok := profileByID[thread.Counterparty(viewerID)]; ok {
			p := profile
			summary.Counterparty = &p
		}
		if msg, ok := lastMessages[thread.ID]; ok {
			m := msg
			summary.LastMessage = &m
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"threads": summaries})
}

// StartThread handles first contact: it creates (or reuses) the thread for
// the participant pair and listing, and records the opening inquiry.
func (h *ThreadHandler) StartThread(c *gin.Context) {
	var req struct {
		RecipientID int      `json:"recipient_id" binding:"required"`
		Body        string   `json:"body" binding:"required"`
		Subject     *string  `json:"subject"`
		ListingID   *int     `json:"listing_id"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	viewerID := c.GetInt("userID")
	body := strings.TrimSpace(req.Body)
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body must not be empty"})
		return
	}
	if req.RecipientID == viewerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	thread, err := h.threadRepo.CreateOrGetThread(c.Request.Context(), viewerID, req.RecipientID, req.Subject, req.ListingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create thread"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), repositories.CreateMessageParams{
		ThreadID:    thread.ID,
		SenderID:    viewerID,
		RecipientID: req.RecipientID,
		Body:        body,
		Subject:     req.Subject,
		MessageType: models.MessageTypeInquiry,
		ListingID:   req.ListingID,
		Attachments: req.Attachments,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.touchThread(c, thread.ID, msg)
	observability.IncMessageSent(msg.MessageType)
	h.hub.BroadcastMessage(thread.ID, msg)

	c.JSON(http.StatusCreated, gin.H{"thread": thread, "message": msg})
}

// GetThreadMessages loads the full conversation, oldest first, and as a side
// effect acknowledges every unread message addressed to the viewer. The
// returned list reflects the read flags as they were before acknowledgment.
func (h *ThreadHandler) GetThreadMessages(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	viewerID := c.GetInt("userID")
	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrThreadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "thread not found"})
		return
	}
	// Non-participants get the same response as a missing thread.
	if !thread.HasParticipant(viewerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	msgs, err := h.messageRepo.ListThreadMessages(c.Request.Context(), threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// A failed acknowledgment leaves stale unread badges until the next
	// successful open; the conversation itself still renders.
	flipped, err := h.messageRepo.MarkThreadRead(c.Request.Context(), threadID, viewerID)
	if err != nil {
		log.Printf("mark thread read failed: thread=%d viewer=%d err=%v", threadID, viewerID, err)
		observability.IncPartialFailure("mark_read")
		h.audit.Emit(c.Request.Context(), "WARN", "mark thread read failed: "+err.Error(), requestIDFromContext(c), userIDFromContext(c))
	} else if flipped > 0 {
		observability.AddMessagesMarkedRead(flipped)
		h.hub.BroadcastRead(threadID, viewerID)
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostThreadMessage appends a reply to an existing thread. The recipient is
// always derived from the thread's participant pair, never from the request.
func (h *ThreadHandler) PostThreadMessage(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	viewerID := c.GetInt("userID")
	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrThreadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "thread not found"})
		return
	}
	if !thread.HasParticipant(viewerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	var req struct {
		Body        string   `json:"body" binding:"required"`
		Subject     *string  `json:"subject"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body must not be empty"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), repositories.CreateMessageParams{
		ThreadID:    thread.ID,
		SenderID:    viewerID,
		RecipientID: thread.Counterparty(viewerID),
		Body:        body,
		Subject:     req.Subject,
		MessageType: models.MessageTypeResponse,
		ListingID:   thread.ListingID,
		Attachments: req.Attachments,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.touchThread(c, thread.ID, msg)
	observability.IncMessageSent(msg.MessageType)
	h.hub.BroadcastMessage(thread.ID, msg)

	c.JSON(http.StatusCreated, msg)
}

// GetUnreadCount returns the viewer's unread badge across all threads.
func (h *ThreadHandler) GetUnreadCount(c *gin.Context) {
	viewerID := c.GetInt("userID")

	total, err := h.messageRepo.UnreadTotal(c.Request.Context(), viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": total})
}

// UpdateThreadStatus moves a thread between active, archived and closed.
// Threads are never deleted.
func (h *ThreadHandler) UpdateThreadStatus(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidThreadStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread status"})
		return
	}

	viewerID := c.GetInt("userID")
	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrThreadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "thread not found"})
		return
	}
	if !thread.HasParticipant(viewerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	if err := h.threadRepo.UpdateStatus(c.Request.Context(), threadID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update thread"})
		return
	}

	c.Status(http.StatusNoContent)
}

// touchThread advances the thread's last-activity timestamp after a message
// insert. The insert already succeeded, so a failure here only delays the
// ordering of the conversation list; the next message corrects it.
func (h *ThreadHandler) touchThread(c *gin.Context, threadID int, msg models.Message) {
	if err := h.threadRepo.TouchLastMessageAt(c.Request.Context(), threadID, msg.CreatedAt); err != nil {
		log.Printf("touch thread failed: thread=%d err=%v", threadID, err)
		observability.IncPartialFailure("touch_thread")
		h.audit.Emit(c.Request.Context(), "WARN", "thread timestamp update failed: "+err.Error(), requestIDFromContext(c), userIDFromContext(c))
	}
}
