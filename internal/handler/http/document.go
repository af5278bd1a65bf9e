package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/service"
)

// DocumentHandler serves /api/documents. Every route requires middleware.Auth.
type DocumentHandler struct {
	docService *service.DocumentService
}

func NewDocumentHandler(docService *service.DocumentService) *DocumentHandler {
	if docService == nil {
		panic("DocumentService cannot be nil for DocumentHandler")
	}
	return &DocumentHandler{docService: docService}
}

type DocumentRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Language string `json:"language" binding:"max=50"`
}

type AddCollaboratorRequest struct {
	Username   string `json:"username" binding:"required"`
	Permission string `json:"permission" binding:"omitempty,oneof=read write"`
}

type CollaboratorResponse struct {
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Permission string    `json:"permission"`
	JoinedAt   time.Time `json:"joined_at"`
}

type DocumentResponse struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	Language       string                 `json:"language"`
	OwnerID        uint                   `json:"owner_id"`
	ContentVersion int64                  `json:"content_version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Collaborators  []CollaboratorResponse `json:"collaborators"`
}

func toCollaboratorResponse(c domain.DocumentCollaborator) CollaboratorResponse {
	return CollaboratorResponse{
		UserID:     c.UserID,
		Username:   c.User.Username,
		Permission: c.Permission,
		JoinedAt:   c.JoinedAt,
	}
}

func toDocumentResponse(d *domain.Document) DocumentResponse {
	collaborators := make([]CollaboratorResponse, 0, len(d.Collaborators))
	for _, c := range d.Collaborators {
		collaborators = append(collaborators, toCollaboratorResponse(c))
	}
	return DocumentResponse{
		ID:             d.ID,
		Title:          d.Title,
		Content:        d.Content,
		Language:       d.Language,
		OwnerID:        d.OwnerID,
		ContentVersion: d.ContentVersion,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		Collaborators:  collaborators,
	}
}

// List returns the documents the caller owns or collaborates on.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	docs, err := h.docService.List(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	SuccessResponse(c, http.StatusOK, out)
}

func (h *DocumentHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	doc, err := h.docService.Create(c.Request.Context(), userID, service.DocumentInput{Title: req.Title, Language: req.Language})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, toDocumentResponse(doc))
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	doc, err := h.docService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	doc, err := h.docService.Update(c.Request.Context(), userID, c.Param("id"), service.DocumentInput{Title: req.Title, Language: req.Language})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.docService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCollaborator grants a user, by username, access to the document.
func (h *DocumentHandler) AddCollaborator(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	collab, err := h.docService.AddCollaborator(c.Request.Context(), userID, c.Param("id"), req.Username, req.Permission)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	resp := toCollaboratorResponse(*collab)
	if resp.Username == "" {
		resp.Username = req.Username
	}
	SuccessResponse(c, http.StatusCreated, resp)
}
