package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.uc.Conversation.ListConversations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, convs)
}

type createConversationRequest struct {
	Title           string   `json:"title"`
	Type            string   `json:"type" validate:"required,oneof=case direct group"`
	CaseID          string   `json:"case_id" validate:"required_if=Type case"`
	IsClientVisible bool     `json:"is_client_visible"`
	ParticipantIDs  []string `json:"participant_ids" validate:"dive,required"`
}

// createConversationResponse carries the conversation even when adding the
// participants failed, together with a warning describing what is missing
type createConversationResponse struct {
	Conversation *model.Conversation `json:"conversation"`
	Warning      string              `json:"warning,omitempty"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conv, err := s.uc.Conversation.CreateConversation(r.Context(), model.NewConversationRequest{
		Title:           req.Title,
		Type:            types.ConversationType(req.Type),
		CaseID:          req.CaseID,
		IsClientVisible: req.IsClientVisible,
		ParticipantIDs:  req.ParticipantIDs,
	})
	if err != nil && !(conv != nil && errors.Is(err, usecase.ErrPartialFailure)) {
		writeError(w, r, err)
		return
	}

	resp := createConversationResponse{Conversation: conv}
	if err != nil {
		resp.Warning = "conversation created but participants could not be added"
	}
	writeJSON(r.Context(), w, http.StatusCreated, resp)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.uc.Conversation.GetConversation(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, conv)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := s.uc.Conversation.GetMessages(r.Context(), chi.URLParam(r, "conversationID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content        string `json:"content"`
	MessageType    string `json:"message_type" validate:"omitempty,oneof=text file system"`
	IsInternal     bool   `json:"is_internal"`
	AttachmentURL  string `json:"attachment_url" validate:"required_with=AttachmentName"`
	AttachmentName string `json:"attachment_name"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := s.uc.Conversation.SendMessage(r.Context(), model.NewMessageRequest{
		ConversationID: chi.URLParam(r, "conversationID"),
		Content:        req.Content,
		MessageType:    types.MessageType(req.MessageType),
		IsInternal:     req.IsInternal,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, msg)
}

type addParticipantRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role" validate:"omitempty,oneof=CLIENT AGENT ADMIN DPO"`
}

func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.uc.Conversation.AddParticipant(r.Context(), chi.URLParam(r, "conversationID"),
		req.UserID, req.UserName, types.Role(req.UserRole))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, p)
}

func (s *Server) markAsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Conversation.MarkAsRead(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
