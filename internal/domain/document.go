package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLanguage is applied to documents created without a language.
const DefaultLanguage = "javascript"

// Collaborator permissions.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Document is the durable record behind a collaborative editing room.
// The room itself is never stored; it is keyed by Document.ID in the update log and the bus.
type Document struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	Title    string `gorm:"type:varchar(255);not null"`
	Content  string `gorm:"type:text"`
	Language string `gorm:"type:varchar(50);not null;default:javascript"`
	OwnerID  uint   `gorm:"index;not null"`
	// ContentVersion is the update log position of the last content snapshot written.
	ContentVersion int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime;index"`

	Collaborators []DocumentCollaborator `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a UUID and the default language.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Language == "" {
		d.Language = DefaultLanguage
	}
	return nil
}

// DocumentCollaborator grants a user access to a document owned by someone else.
type DocumentCollaborator struct {
	ID         uint      `gorm:"primaryKey"`
	DocumentID string    `gorm:"type:varchar(36);uniqueIndex:idx_document_user;not null"`
	UserID     uint      `gorm:"uniqueIndex:idx_document_user;not null"`
	Permission string    `gorm:"type:varchar(10);not null;default:write"`
	JoinedAt   time.Time `gorm:"autoCreateTime"`

	User User `gorm:"foreignKey:UserID"`
}

// ValidPermission reports whether p is one of the known permissions.
func ValidPermission(p string) bool {
	return p == PermissionRead || p == PermissionWrite
}
