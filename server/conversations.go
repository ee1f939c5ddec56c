package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sweetpotato0/kgpgpt/conversation"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
)

type createConversationRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

type addMessageRequest struct {
	Role     message.Role   `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) createConversation(c *gin.Context) {
	var body createConversationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", kgperrors.ErrInvalidInput, err))
		return
	}
	conv := &conversation.Conversation{UserID: body.UserID, Title: body.Title}
	if err := s.opts.Store.CreateConversation(c.Request.Context(), conv); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (s *Server) listConversations(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		s.respondError(c, fmt.Errorf("%w: userId query parameter is required", kgperrors.ErrInvalidInput))
		return
	}
	convs, err := s.opts.Store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (s *Server) getConversation(c *gin.Context) {
	conv, err := s.opts.Store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (s *Server) deleteConversation(c *gin.Context) {
	if err := s.opts.Store.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listMessages(c *gin.Context) {
	msgs, err := s.opts.Store.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) addMessage(c *gin.Context) {
	var body addMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", kgperrors.ErrInvalidInput, err))
		return
	}
	if body.Role == "" || strings.TrimSpace(body.Content) == "" {
		s.respondError(c, fmt.Errorf("%w: role and content are required", kgperrors.ErrInvalidInput))
		return
	}
	msg := &conversation.Message{
		ConversationID: c.Param("id"),
		Role:           body.Role,
		Content:        body.Content,
		Metadata:       body.Metadata,
	}
	if err := s.opts.Store.AddMessage(c.Request.Context(), msg); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
