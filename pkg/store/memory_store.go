package store

import (
	"sort"
	"strings"
	"sync"

	"forumhub/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs service and HTTP tests
// so they run without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[int64]domain.User
	courses map[int64]domain.Course
	topics  map[int64]domain.Topic
	answers map[int64]domain.Answer
	nextID  int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]domain.User),
		courses: make(map[int64]domain.Course),
		topics:  make(map[int64]domain.Topic),
		answers: make(map[int64]domain.Answer),
	}
}

// Transaction runs fn against the store itself. The in-memory store offers
// no rollback; tests that need commit atomicity use the Postgres store.
func (m *MemoryStore) Transaction(fn func(Store) error) error {
	return fn(m)
}

func (m *MemoryStore) allocID() int64 {
	m.nextID++
	return m.nextID
}

// SaveUser creates or updates a user, enforcing email uniqueness.
func (m *MemoryStore) SaveUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return ErrDuplicate
		}
	}
	if u.ID == 0 {
		u.ID = m.allocID()
	}
	m.users[u.ID] = *u
	return nil
}

// GetUserByEmail looks up a user by exact email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListActiveUsers returns a page of active users plus the total count.
func (m *MemoryStore) ListActiveUsers(p Pagination) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = p.Normalize()
	all := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Active {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		less := all[i].Name < all[j].Name
		if all[i].Name == all[j].Name {
			less = all[i].ID < all[j].ID
		}
		if p.Desc {
			return !less
		}
		return less
	})
	return pageOf(all, p), int64(len(all)), nil
}

// SaveCourse creates or updates a course, enforcing case-insensitive name
// uniqueness.
func (m *MemoryStore) SaveCourse(c *domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.courses {
		if strings.EqualFold(existing.Name, c.Name) && existing.ID != c.ID {
			return ErrDuplicate
		}
	}
	if c.ID == 0 {
		c.ID = m.allocID()
	}
	m.courses[c.ID] = *c
	return nil
}

// GetCourseByName looks up a course by name, case-insensitively.
func (m *MemoryStore) GetCourseByName(name string) (domain.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if strings.EqualFold(c.Name, name) {
			return c, true, nil
		}
	}
	return domain.Course{}, false, nil
}

// SaveTopic creates or updates a topic, enforcing case-insensitive
// title+message uniqueness.
func (m *MemoryStore) SaveTopic(t *domain.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.topics {
		if strings.EqualFold(existing.Title, t.Title) &&
			strings.EqualFold(existing.Message, t.Message) &&
			existing.ID != t.ID {
			return ErrDuplicate
		}
	}
	if t.ID == 0 {
		t.ID = m.allocID()
	}
	m.topics[t.ID] = *t
	return nil
}

// GetTopicByID returns a topic by ID.
func (m *MemoryStore) GetTopicByID(id int64) (domain.Topic, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[id]
	return t, ok, nil
}

// GetTopicByTitleAndMessage finds a topic by title and message, ignoring case.
func (m *MemoryStore) GetTopicByTitleAndMessage(title, message string) (domain.Topic, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.topics {
		if strings.EqualFold(t.Title, title) && strings.EqualFold(t.Message, message) {
			return t, true, nil
		}
	}
	return domain.Topic{}, false, nil
}

// ListTopics returns a page of topics plus the total count.
func (m *MemoryStore) ListTopics(p Pagination) ([]domain.Topic, int64, error) {
	return m.listTopics(p, func(domain.Topic) bool { return true })
}

// ListTopicsByAuthor returns a page of one author's topics plus the total.
func (m *MemoryStore) ListTopicsByAuthor(authorID int64, p Pagination) ([]domain.Topic, int64, error) {
	return m.listTopics(p, func(t domain.Topic) bool { return t.AuthorID == authorID })
}

func (m *MemoryStore) listTopics(p Pagination, keep func(domain.Topic) bool) ([]domain.Topic, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = p.Normalize()
	all := make([]domain.Topic, 0, len(m.topics))
	for _, t := range m.topics {
		if keep(t) {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		var less bool
		if p.Sort == "title" {
			less = all[i].Title < all[j].Title
		} else {
			less = all[i].CreatedAt.Before(all[j].CreatedAt)
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				less = all[i].ID < all[j].ID
			}
		}
		if p.Desc {
			return !less
		}
		return less
	})
	return pageOf(all, p), int64(len(all)), nil
}

// DeleteTopic removes a topic and its answers.
func (m *MemoryStore) DeleteTopic(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.topics, id)
	for answerID, a := range m.answers {
		if a.TopicID == id {
			delete(m.answers, answerID)
		}
	}
	return nil
}

// SaveAnswer creates or updates an answer.
func (m *MemoryStore) SaveAnswer(a *domain.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.allocID()
	}
	m.answers[a.ID] = *a
	return nil
}

// GetAnswerByID returns an answer by ID.
func (m *MemoryStore) GetAnswerByID(id int64) (domain.Answer, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.answers[id]
	return a, ok, nil
}

// ListAnswersByTopic returns a topic's answers in creation order.
func (m *MemoryStore) ListAnswersByTopic(topicID int64) ([]domain.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	answers := make([]domain.Answer, 0)
	for _, a := range m.answers {
		if a.TopicID == topicID {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].CreatedAt.Equal(answers[j].CreatedAt) {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})
	return answers, nil
}

// CountAnswersByTopic returns the number of answers on a topic.
func (m *MemoryStore) CountAnswersByTopic(topicID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, a := range m.answers {
		if a.TopicID == topicID {
			count++
		}
	}
	return count, nil
}

// DeleteAnswer removes a single answer.
func (m *MemoryStore) DeleteAnswer(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.answers, id)
	return nil
}

func pageOf[T any](all []T, p Pagination) []T {
	start := p.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + p.Size
	if end > len(all) {
		end = len(all)
	}
	out := make([]T, end-start)
	copy(out, all[start:end])
	return out
}
