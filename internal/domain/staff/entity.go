package staff

import "time"

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// Staff is a dashboard account able to receive and act on claim requests.
type Staff struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Name         string    `gorm:"column:name" json:"name"`
	Role         string    `gorm:"column:role" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Staff) TableName() string {
	return "staff"
}
