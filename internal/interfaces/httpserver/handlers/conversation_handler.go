package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/dto"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/responses"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

// ConversationService is the conversation CRUD contract used by the handlers.
type ConversationService interface {
	List(ctx context.Context, limit int) ([]*conversation.Conversation, error)
	Create(ctx context.Context) (*conversation.Conversation, error)
	Get(ctx context.Context, publicID string) (*conversation.Conversation, error)
	Delete(ctx context.Context, publicID string) error
	UpdateTitle(ctx context.Context, publicID, title string) (*conversation.Conversation, error)
}

// ConversationHandler exposes conversation history endpoints.
type ConversationHandler struct {
	service ConversationService
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service ConversationService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// List godoc
// @Summary      List conversations
// @Description  Returns conversations with at least one message, most recently updated first.
// @Tags         conversations
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of conversations"
// @Success      200    {object}  dto.ConversationListResponse
// @Failure      400    {object}  responses.ErrorResponse
// @Failure      500    {object}  responses.ErrorResponse
// @Router       /v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "limit must be a non-negative integer", "conversation-list-invalid-limit")
			return
		}
		limit = parsed
	}

	convs, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	resp := dto.ConversationListResponse{Object: "list", Data: make([]dto.ConversationPayload, 0, len(convs))}
	for _, conv := range convs {
		resp.Data = append(resp.Data, dto.FromConversation(conv))
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Create conversation
// @Description  Creates an empty conversation shell.
// @Tags         conversations
// @Produce      json
// @Success      201  {object}  dto.ConversationPayload
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	conv, err := h.service.Create(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, dto.FromConversation(conv))
}

// Get godoc
// @Summary      Get conversation
// @Description  Returns a conversation with its messages in creation order.
// @Tags         conversations
// @Produce      json
// @Param        conversation_id  path      string  true  "Conversation ID"
// @Success      200              {object}  dto.ConversationPayload
// @Failure      404              {object}  responses.ErrorResponse
// @Router       /v1/conversations/{conversation_id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.service.Get(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}
	c.JSON(http.StatusOK, dto.FromConversation(conv))
}

// Update godoc
// @Summary      Rename conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        conversation_id  path      string                         true  "Conversation ID"
// @Param        request          body      dto.UpdateConversationRequest  true  "New title"
// @Success      200              {object}  dto.ConversationPayload
// @Failure      400              {object}  responses.ErrorResponse
// @Failure      404              {object}  responses.ErrorResponse
// @Router       /v1/conversations/{conversation_id} [patch]
func (h *ConversationHandler) Update(c *gin.Context) {
	var req dto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "title is required", "conversation-update-invalid-body")
		return
	}

	conv, err := h.service.UpdateTitle(c.Request.Context(), c.Param("conversation_id"), req.Title)
	if err != nil {
		responses.HandleError(c, err, "failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, dto.FromConversation(conv))
}

// Delete godoc
// @Summary      Delete conversation
// @Description  Deletes a conversation and its messages.
// @Tags         conversations
// @Produce      json
// @Param        conversation_id  path      string  true  "Conversation ID"
// @Success      200              {object}  dto.DeletedResponse
// @Failure      404              {object}  responses.ErrorResponse
// @Router       /v1/conversations/{conversation_id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	id := c.Param("conversation_id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, dto.DeletedResponse{ID: id, Object: "conversation.deleted", Deleted: true})
}
