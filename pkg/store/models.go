package store

import "time"

// GORM models used for persistence. Case-insensitive uniqueness for topics
// and courses is enforced by functional indexes created during migration.
type UserModel struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
}

type CourseModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

type TopicModel struct {
	ID        int64     `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	AuthorID  int64     `gorm:"not null;index"`
	CourseID  int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type AnswerModel struct {
	ID        int64     `gorm:"primaryKey"`
	Message   string    `gorm:"not null"`
	Solution  string
	TopicID   int64     `gorm:"not null;index"`
	AuthorID  int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}
