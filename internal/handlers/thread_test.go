package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

func setupThreadRouter(handler *ThreadHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/threads", handler.ListThreads)
	r.POST("/threads", handler.StartThread)
	r.GET("/threads/unread-count", handler.GetUnreadCount)
	r.GET("/threads/:thread_id/messages", handler.GetThreadMessages)
	r.POST("/threads/:thread_id/messages", handler.PostThreadMessage)
	r.PATCH("/threads/:thread_id/status", handler.UpdateThreadStatus)
	return r
}

func TestListThreadsSuccess(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, profileRepo, nil, nil)
	router := setupThreadRouter(handler)

	now := time.Now()
	threads := []models.Thread{
		{ID: 3, User1ID: 1, User2ID: 2, Status: models.ThreadStatusActive, LastMessageAt: now},
		{ID: 4, User1ID: 1, User2ID: 5, Status: models.ThreadStatusActive, LastMessageAt: now.Add(-time.Hour)},
	}
	lastMsg := models.Message{ID: 9, ThreadID: 3, SenderID: 2, RecipientID: 1, Body: "300 kg available", CreatedAt: now}
	company := "TiAlloys GmbH"

	threadRepo.On("ListThreads", mock.Anything, 1).Return(threads, nil).Once()
	messageRepo.On("LastMessages", mock.Anything, []int{3, 4}).Return(map[int]models.Message{3: lastMsg}, nil).Once()
	messageRepo.On("UnreadCounts", mock.Anything, []int{3, 4}, 1).Return(map[int]int{3: 2}, nil).Once()
	profileRepo.On("BulkProfiles", mock.Anything, []int{2, 5}).Return([]models.Profile{
		{UserID: 2, FullName: "Greta Weber", CompanyName: &company},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Threads []models.ThreadSummary `json:"threads"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Threads, 2)

	assert.Equal(t, 3, resp.Threads[0].ThreadID)
	assert.Equal(t, 2, resp.Threads[0].UnreadCount)
	require.NotNil(t, resp.Threads[0].Counterparty)
	assert.Equal(t, "TiAlloys GmbH", resp.Threads[0].Counterparty.DisplayName())
	require.NotNil(t, resp.Threads[0].LastMessage)
	assert.Equal(t, 9, resp.Threads[0].LastMessage.ID)

	// The second thread has no messages and no resolvable counterparty,
	// but it is still present in the list.
	assert.Equal(t, 4, resp.Threads[1].ThreadID)
	assert.Equal(t, 0, resp.Threads[1].UnreadCount)
	assert.Nil(t, resp.Threads[1].Counterparty)
	assert.Nil(t, resp.Threads[1].LastMessage)

	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestListThreadsRepoError(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	threadRepo.On("ListThreads", mock.Anything, 1).Return(([]models.Thread)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestListThreadsProfileFailureDegrades(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, profileRepo, nil, nil)
	router := setupThreadRouter(handler)

	threads := []models.Thread{{ID: 3, User1ID: 1, User2ID: 2, Status: models.ThreadStatusActive}}
	threadRepo.On("ListThreads", mock.Anything, 1).Return(threads, nil).Once()
	messageRepo.On("LastMessages", mock.Anything, []int{3}).Return(map[int]models.Message{}, nil).Once()
	messageRepo.On("UnreadCounts", mock.Anything, []int{3}, 1).Return(map[int]int{}, nil).Once()
	profileRepo.On("BulkProfiles", mock.Anything, []int{2}).Return(([]models.Profile)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Threads []models.ThreadSummary `json:"threads"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Threads, 1)
	assert.Nil(t, resp.Threads[0].Counterparty)

	profileRepo.AssertExpectations(t)
}

func TestStartThreadFirstContact(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub(), nil)
	router := setupThreadRouter(handler)

	sent := time.Now()
	listingID := 77
	thread := models.Thread{ID: 10, User1ID: 1, User2ID: 2, ListingID: &listingID}
	msg := models.Message{ID: 1, ThreadID: 10, SenderID: 1, RecipientID: 2, Body: "Is the Ti64 lot still available?", MessageType: models.MessageTypeInquiry, CreatedAt: sent}

	threadRepo.On("CreateOrGetThread", mock.Anything, 1, 2, (*string)(nil), &listingID).Return(thread, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(p repositories.CreateMessageParams) bool {
		return p.ThreadID == 10 && p.SenderID == 1 && p.RecipientID == 2 && p.MessageType == models.MessageTypeInquiry
	})).Return(msg, nil).Once()
	threadRepo.On("TouchLastMessageAt", mock.Anything, 10, sent).Return(nil).Once()

	body := bytes.NewBufferString(`{"recipient_id":2,"body":"Is the Ti64 lot still available?","listing_id":77}`)
	req := httptest.NewRequest(http.MethodPost, "/threads", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestStartThreadBlankBody(t *testing.T) {
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/threads", bytes.NewBufferString(`{"recipient_id":2,"body":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartThreadWithSelf(t *testing.T) {
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/threads", bytes.NewBufferString(`{"recipient_id":1,"body":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThreadMessagesMarksRead(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub(), nil)
	router := setupThreadRouter(handler)

	msgs := []models.Message{
		{ID: 1, ThreadID: 5, SenderID: 1, RecipientID: 2, Read: true},
		{ID: 2, ThreadID: 5, SenderID: 2, RecipientID: 1, Read: false},
	}
	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("ListThreadMessages", mock.Anything, 5).Return(msgs, nil).Once()
	messageRepo.On("MarkThreadRead", mock.Anything, 5, 1).Return(int64(1), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	// The response reflects the state before acknowledgment landed.
	assert.False(t, resp.Messages[1].Read)

	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetThreadMessagesMarkReadFailureStillRenders(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub(), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("ListThreadMessages", mock.Anything, 5).Return([]models.Message{{ID: 2, ThreadID: 5, SenderID: 2, RecipientID: 1}}, nil).Once()
	messageRepo.On("MarkThreadRead", mock.Anything, 5, 1).Return(int64(0), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestGetThreadMessagesNotParticipant(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 2, User2ID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Same answer as a missing thread so existence is not leaked.
	require.Equal(t, http.StatusNotFound, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestGetThreadMessagesInvalidID(t *testing.T) {
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/threads/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostThreadMessageDerivesRecipient(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub(), nil)
	router := setupThreadRouter(handler)

	sent := time.Now()
	msg := models.Message{ID: 7, ThreadID: 5, SenderID: 1, RecipientID: 2, Body: "Can you share the powder cert?", MessageType: models.MessageTypeResponse, CreatedAt: sent}

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(p repositories.CreateMessageParams) bool {
		return p.ThreadID == 5 && p.SenderID == 1 && p.RecipientID == 2 && p.MessageType == models.MessageTypeResponse
	})).Return(msg, nil).Once()
	threadRepo.On("TouchLastMessageAt", mock.Anything, 5, sent).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"body":"Can you share the powder cert?"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostThreadMessageTouchFailureStillCreated(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub(), nil)
	router := setupThreadRouter(handler)

	sent := time.Now()
	msg := models.Message{ID: 7, ThreadID: 5, SenderID: 1, RecipientID: 2, Body: "hi", MessageType: models.MessageTypeResponse, CreatedAt: sent}

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(msg, nil).Once()
	threadRepo.On("TouchLastMessageAt", mock.Anything, 5, sent).Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Insert-first ordering: the message is durable, the stale timestamp
	// heals on the next send.
	require.Equal(t, http.StatusCreated, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestPostThreadMessageNotParticipant(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 2, User2ID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestGetUnreadCount(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), messageRepo, new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	messageRepo.On("UnreadTotal", mock.Anything, 1).Return(5, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 5, resp["unread_count"])
	messageRepo.AssertExpectations(t)
}

func TestUpdateThreadStatus(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	threadRepo.On("UpdateStatus", mock.Anything, 5, models.ThreadStatusArchived).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/threads/5/status", bytes.NewBufferString(`{"status":"archived"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestUpdateThreadStatusInvalid(t *testing.T) {
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), nil, nil)
	router := setupThreadRouter(handler)

	req := httptest.NewRequest(http.MethodPatch, "/threads/5/status", bytes.NewBufferString(`{"status":"deleted"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
