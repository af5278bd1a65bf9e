package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// GormDocumentRepository implements repository.DocumentRepository.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a GormDocumentRepository.
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	if db == nil {
		panic("database connection cannot be nil for GormDocumentRepository")
	}
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Preload("Collaborators.User").
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("gorm: find document by id %s: %w", id, err)
	}
	return &doc, nil
}

func (r *GormDocumentRepository) ListAccessible(ctx context.Context, userID uint) ([]domain.Document, error) {
	var docs []domain.Document
	shared := r.db.Model(&domain.DocumentCollaborator{}).Select("document_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Preload("Collaborators.User").
		Where("owner_id = ?", userID).
		Or("id IN (?)", shared).
		Order("updated_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list documents for user %d: %w", userID, err)
	}
	return docs, nil
}

// Save writes metadata only. Content and ContentVersion are owned by WriteContent.
func (r *GormDocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	db := r.db.WithContext(ctx).Omit("Collaborators")
	var err error
	if doc.CreatedAt.IsZero() {
		err = db.Create(doc).Error
	} else {
		err = db.Model(doc).Select("title", "language", "updated_at").Updates(doc).Error
	}
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save document (id: %s): %w", doc.ID, err)
	}
	return nil
}

func (r *GormDocumentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&domain.DocumentCollaborator{}).Error; err != nil {
			return fmt.Errorf("gorm: delete collaborators of document %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&domain.Document{})
		if res.Error != nil {
			return fmt.Errorf("gorm: delete document %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrDocumentNotFound
		}
		return nil
	})
}

// WriteContent is a conditional update so out-of-order task execution never
// replaces newer content with older content.
func (r *GormDocumentRepository) WriteContent(ctx context.Context, id, content string, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND content_version < ?", id, version).
		Updates(map[string]interface{}{
			"content":         content,
			"content_version": version,
		})
	if res.Error != nil {
		return false, fmt.Errorf("gorm: write content of document %s (version %d): %w", id, version, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Nothing updated: either the document is gone or it already holds a newer version.
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm: check document %s exists: %w", id, err)
	}
	return count > 0, nil
}

func (r *GormDocumentRepository) FindCollaborator(ctx context.Context, documentID string, userID uint) (*domain.DocumentCollaborator, error) {
	var c domain.DocumentCollaborator
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("gorm: find collaborator (document %s, user %d): %w", documentID, userID, err)
	}
	return &c, nil
}

// UpsertCollaborator relies on the (document_id, user_id) unique index.
func (r *GormDocumentRepository) UpsertCollaborator(ctx context.Context, c *domain.DocumentCollaborator) error {
	err := r.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permission"}),
		}).
		Create(c).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert collaborator (document %s, user %d): %w", c.DocumentID, c.UserID, err)
	}
	return nil
}
