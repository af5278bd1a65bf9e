package repository

import (
	"context"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
)

// DocumentRepository stores document metadata, content snapshots and collaborators.
type DocumentRepository interface {
	// FindByID returns ErrDocumentNotFound when the document does not exist.
	FindByID(ctx context.Context, id string) (*domain.Document, error)

	// ListAccessible returns documents owned by or shared with the user, most recently updated first.
	ListAccessible(ctx context.Context, userID uint) ([]domain.Document, error)

	// Save creates or updates the document's metadata.
	Save(ctx context.Context, doc *domain.Document) error

	// Delete removes the document and its collaborators.
	Delete(ctx context.Context, id string) error

	// WriteContent stores a content snapshot if version is newer than the stored one.
	// exists is false when the document is gone; a stale version is a successful no-op.
	WriteContent(ctx context.Context, id, content string, version int64) (exists bool, err error)

	// FindCollaborator returns ErrCollaboratorNotFound when the user has no grant.
	FindCollaborator(ctx context.Context, documentID string, userID uint) (*domain.DocumentCollaborator, error)

	// UpsertCollaborator creates the grant or updates its permission.
	UpsertCollaborator(ctx context.Context, collaborator *domain.DocumentCollaborator) error
}
