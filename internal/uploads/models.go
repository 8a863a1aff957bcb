package uploads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProofFile records an uploaded proof artifact: an instructor signature or
// a photo attached to a training item completion. The binary lives in the
// storage driver; this row carries the metadata.
type ProofFile struct {
	ID         uuid.UUID `gorm:"type:uuid;column:id;primaryKey" json:"id"`
	InstanceID uuid.UUID `gorm:"type:uuid;column:instance_id;not null;index" json:"instanceId"`
	ItemID     uuid.UUID `gorm:"type:uuid;column:item_id;not null;index" json:"itemId"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null" json:"userId"`
	Name       string    `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Key        string    `gorm:"type:varchar(255);column:key;uniqueIndex;not null" json:"key"`
	URL        string    `gorm:"type:varchar(1024);column:url" json:"url"`
	Size       int64     `gorm:"column:size;not null" json:"size"`
	MimeType   string    `gorm:"type:varchar(100);column:mime_type;not null" json:"mimeType"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
}

func (p *ProofFile) TableName() string {
	return "proof_files"
}

func (p *ProofFile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
