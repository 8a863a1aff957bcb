package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enumerates the roles a crew member or administrator can hold.
type UserRole string

const (
	RoleCrew  UserRole = "crew"
	RoleAdmin UserRole = "admin"
)

// User represents an account that can be assigned onboarding workflows.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);column:email;uniqueIndex;not null" json:"email"`
	Role      UserRole  `gorm:"type:varchar(20);column:role;not null;default:'crew'" json:"role"`
	Status    string    `gorm:"type:varchar(20);column:status;not null;default:'active'" json:"status"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updatedAt"`
}

func (u *User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// MagicLink is a single-use login token emailed to a user. A link is
// consumed when used_at is set; expired or consumed links never verify.
type MagicLink struct {
	ID        uuid.UUID  `gorm:"type:uuid;column:id;primaryKey" json:"id"`
	Email     string     `gorm:"type:varchar(255);column:email;not null;index" json:"email"`
	Token     string     `gorm:"type:varchar(64);column:token;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"column:expires_at;type:timestamptz;not null" json:"expiresAt"`
	UsedAt    *time.Time `gorm:"column:used_at;type:timestamptz" json:"usedAt,omitempty"`
	UsedIP    *string    `gorm:"type:varchar(45);column:used_ip" json:"-"`
	CreatedAt time.Time  `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
}

func (m *MagicLink) TableName() string {
	return "magic_links"
}

func (m *MagicLink) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Session is a bearer credential minted when a magic link verifies.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"userId"`
	Token     string    `gorm:"type:varchar(64);column:token;uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz;not null" json:"expiresAt"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (s *Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
