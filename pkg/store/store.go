package store

import (
	"errors"

	"forumhub/pkg/domain"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint
// (user email, topic title+message, course name). Services translate it into
// a business validation failure.
var ErrDuplicate = errors.New("duplicate record")

// DefaultPageSize is applied when a list request does not name a size.
const DefaultPageSize = 10

const maxPageSize = 100

// Pagination describes an offset-based list request.
type Pagination struct {
	Page int
	Size int
	Sort string // "creationDate" (default) or "title"
	Desc bool
}

// Normalize clamps the request into servable bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	if p.Sort == "" {
		p.Sort = "creationDate"
	}
	return p
}

// Offset returns the row offset for the normalized request.
func (p Pagination) Offset() int {
	return p.Page * p.Size
}

// Store defines persistence for users, courses, topics, and answers.
// Lookups by name or by title+message are case-insensitive. List methods
// return the page items together with the total row count.
type Store interface {
	// users
	SaveUser(u *domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)
	ListActiveUsers(p Pagination) ([]domain.User, int64, error)

	// courses
	SaveCourse(c *domain.Course) error
	GetCourseByName(name string) (domain.Course, bool, error)

	// topics
	SaveTopic(t *domain.Topic) error
	GetTopicByID(id int64) (domain.Topic, bool, error)
	GetTopicByTitleAndMessage(title, message string) (domain.Topic, bool, error)
	ListTopics(p Pagination) ([]domain.Topic, int64, error)
	ListTopicsByAuthor(authorID int64, p Pagination) ([]domain.Topic, int64, error)
	DeleteTopic(id int64) error

	// answers
	SaveAnswer(a *domain.Answer) error
	GetAnswerByID(id int64) (domain.Answer, bool, error)
	ListAnswersByTopic(topicID int64) ([]domain.Answer, error)
	CountAnswersByTopic(topicID int64) (int64, error)
	DeleteAnswer(id int64) error

	// Transaction runs fn against a store whose writes commit atomically.
	// Returning an error rolls every write back.
	Transaction(fn func(Store) error) error
}
