package domain

import "time"

// TopicStatus tracks where a topic stands in its answer lifecycle.
type TopicStatus string

const (
	StatusUnanswered TopicStatus = "UNANSWERED"
	StatusUnsolved   TopicStatus = "UNSOLVED"
	StatusSolved     TopicStatus = "SOLVED"
)

// User is a forum account. Deletion is soft: the row stays, Active flips off.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Update applies the non-nil fields. The password must already be hashed.
func (u *User) Update(name, passwordHash *string) {
	if name != nil {
		u.Name = *name
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
}

// Deactivate soft-deletes the user.
func (u *User) Deactivate() {
	u.Active = false
}

// Course is a named category topics belong to. Courses are read-only to the
// forum itself and populated out of band.
type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Topic is a question opened against a course. Author, course, and creation
// timestamp are immutable after creation.
type Topic struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Status    TopicStatus `json:"status"`
	AuthorID  int64       `json:"authorId"`
	CourseID  int64       `json:"courseId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Update applies the non-nil fields.
func (t *Topic) Update(title, message *string) {
	if title != nil {
		t.Title = *title
	}
	if message != nil {
		t.Message = *message
	}
}

// AnswerAdded advances the status for a single answer-created event. The
// transition is unconditional per event rather than derived from the live
// answer count: UNANSWERED becomes UNSOLVED, UNSOLVED becomes SOLVED, and
// SOLVED stays put.
func (t *Topic) AnswerAdded() {
	switch t.Status {
	case StatusUnanswered:
		t.Status = StatusUnsolved
	case StatusUnsolved:
		t.Status = StatusSolved
	}
}

// AnswerRemoved reverts the topic to UNANSWERED when the deleted answer was
// the last one. countBeforeDelete is the answer count at the moment the
// deletion ran.
func (t *Topic) AnswerRemoved(countBeforeDelete int64) {
	if countBeforeDelete == 1 {
		t.Status = StatusUnanswered
	}
}

// Answer is a reply posted to a topic. Solution carries optional
// client-supplied solution text.
type Answer struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Solution  string    `json:"solution,omitempty"`
	TopicID   int64     `json:"topicId"`
	AuthorID  int64     `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Update applies the non-nil fields.
func (a *Answer) Update(message, solution *string) {
	if message != nil {
		a.Message = *message
	}
	if solution != nil {
		a.Solution = *solution
	}
}
