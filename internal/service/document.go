package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// DocumentService implements the document and collaborator API.
// A user can see a document they own or collaborate on; only the owner can delete it.
type DocumentService struct {
	docRepo  repository.DocumentRepository
	userRepo repository.UserRepository
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(docRepo repository.DocumentRepository, userRepo repository.UserRepository) *DocumentService {
	if docRepo == nil {
		panic("DocumentRepository cannot be nil for DocumentService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for DocumentService")
	}
	return &DocumentService{docRepo: docRepo, userRepo: userRepo}
}

// DocumentInput is the user-editable part of a document.
type DocumentInput struct {
	Title    string
	Language string
}

// List returns the documents visible to userID.
func (s *DocumentService) List(ctx context.Context, userID uint) ([]domain.Document, error) {
	docs, err := s.docRepo.ListAccessible(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list documents")
		return nil, ErrInternalServer
	}
	return docs, nil
}

// Create stores a new document owned by ownerID.
func (s *DocumentService) Create(ctx context.Context, ownerID uint, in DocumentInput) (*domain.Document, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	doc := &domain.Document{
		Title:    in.Title,
		Language: in.Language,
		OwnerID:  ownerID,
	}
	if err := s.docRepo.Save(ctx, doc); err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID).Error("Failed to create document")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"document_id": doc.ID, "owner_id": ownerID}).Info("Document created")
	return doc, nil
}

// Get returns the document if userID may see it. Invisible documents are reported as not found.
func (s *DocumentService) Get(ctx context.Context, userID uint, documentID string) (*domain.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		logrus.WithError(err).WithField("document_id", documentID).Error("Failed to load document")
		return nil, ErrInternalServer
	}
	ok, err := s.canAccess(ctx, doc, userID)
	if err != nil {
		logrus.WithError(err).WithField("document_id", documentID).Error("Failed to check document access")
		return nil, ErrInternalServer
	}
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Update changes title and language.
func (s *DocumentService) Update(ctx context.Context, userID uint, documentID string, in DocumentInput) (*domain.Document, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if in.Title != "" {
		doc.Title = in.Title
	}
	if in.Language != "" {
		doc.Language = in.Language
	}
	if err := s.docRepo.Save(ctx, doc); err != nil {
		logrus.WithError(err).WithField("document_id", documentID).Error("Failed to update document")
		return nil, ErrInternalServer
	}
	return doc, nil
}

// Delete removes a document owned by userID. The update log is left in place.
func (s *DocumentService) Delete(ctx context.Context, userID uint, documentID string) error {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return ErrForbidden
	}
	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return ErrDocumentNotFound
		}
		logrus.WithError(err).WithField("document_id", documentID).Error("Failed to delete document")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"document_id": documentID, "user_id": userID}).Info("Document deleted")
	return nil
}

// AddCollaborator grants username access, or changes the permission of an existing grant.
// An empty permission means write.
func (s *DocumentService) AddCollaborator(ctx context.Context, userID uint, documentID, username, permission string) (*domain.DocumentCollaborator, error) {
	if permission == "" {
		permission = domain.PermissionWrite
	}
	if username == "" || !domain.ValidPermission(permission) {
		return nil, fmt.Errorf("%w: username and a read/write permission are required", ErrInvalidInput)
	}

	if _, err := s.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).WithField("username", username).Error("Failed to look up collaborator")
		return nil, ErrInternalServer
	}

	c := &domain.DocumentCollaborator{
		DocumentID: documentID,
		UserID:     user.ID,
		Permission: permission,
	}
	if err := s.docRepo.UpsertCollaborator(ctx, c); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"document_id": documentID, "username": username}).Error("Failed to save collaborator")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{
		"document_id": documentID,
		"user_id":     user.ID,
		"permission":  permission,
	}).Info("Collaborator added")
	return c, nil
}

func (s *DocumentService) canAccess(ctx context.Context, doc *domain.Document, userID uint) (bool, error) {
	if doc.OwnerID == userID {
		return true, nil
	}
	_, err := s.docRepo.FindCollaborator(ctx, doc.ID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrCollaboratorNotFound):
		return false, nil
	default:
		return false, err
	}
}
