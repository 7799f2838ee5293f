package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// TopicService owns the topic lifecycle and the status state machine.
type TopicService struct {
	store       store.Store
	users       *UserService
	createRules []CreateTopicRule
	updateRules []UpdateTopicRule
}

// NewTopicService assembles the validation chains explicitly; adding a rule
// means appending to a slice, not touching the service.
func NewTopicService(st store.Store, users *UserService) *TopicService {
	return &TopicService{
		store: st,
		users: users,
		createRules: []CreateTopicRule{
			topicUnique{store: st},
			courseExists{store: st},
		},
		updateRules: []UpdateTopicRule{
			topicExists{store: st},
			authorizedUser{store: st},
			atLeastOneField{},
			titleMessageUnique{store: st},
		},
	}
}

// Create validates and stores a new topic authored by the principal. Status
// starts at UNANSWERED and the creation timestamp is assigned here.
func (s *TopicService) Create(principal domain.User, in TopicCreate) (domain.Topic, error) {
	if err := s.users.EnsureActive(principal); err != nil {
		return domain.Topic{}, err
	}
	if err := validateTopicCreateFields(in); err != nil {
		return domain.Topic{}, err
	}
	for _, rule := range s.createRules {
		if err := rule.Validate(in); err != nil {
			return domain.Topic{}, err
		}
	}
	course, ok, err := s.store.GetCourseByName(in.CourseName)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return domain.Topic{}, ValidationError{Message: "Curso não encontrado: " + in.CourseName}
	}
	topic := domain.Topic{
		Title:     in.Title,
		Message:   in.Message,
		Status:    domain.StatusUnanswered,
		AuthorID:  principal.ID,
		CourseID:  course.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveTopic(&topic); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Topic{}, ValidationError{Message: "Tópico já existente: " + in.Title}
		}
		return domain.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	return topic, nil
}

// GetByID is a pure lookup; the HTTP layer maps a miss to 404.
func (s *TopicService) GetByID(id int64) (domain.Topic, bool, error) {
	return s.store.GetTopicByID(id)
}

// ListAll returns a page of topics, by default sorted by creation ascending.
func (s *TopicService) ListAll(p store.Pagination) ([]domain.Topic, int64, error) {
	return s.store.ListTopics(p)
}

// TopicDetail is the fully resolved projection served for a single topic.
type TopicDetail struct {
	Topic      domain.Topic
	AuthorName string
	Answers    []AnswerDetail
}

// AnswerDetail pairs an answer with its author's display name.
type AnswerDetail struct {
	Answer     domain.Answer
	AuthorName string
}

// Detail resolves a topic together with its author name and ordered answers.
func (s *TopicService) Detail(id int64) (TopicDetail, bool, error) {
	topic, ok, err := s.store.GetTopicByID(id)
	if err != nil || !ok {
		return TopicDetail{}, false, err
	}
	detail := TopicDetail{Topic: topic}
	names := map[int64]string{}
	lookupName := func(userID int64) (string, error) {
		if name, seen := names[userID]; seen {
			return name, nil
		}
		user, ok, err := s.store.GetUserByID(userID)
		if err != nil {
			return "", err
		}
		name := ""
		if ok {
			name = user.Name
		}
		names[userID] = name
		return name, nil
	}
	if detail.AuthorName, err = lookupName(topic.AuthorID); err != nil {
		return TopicDetail{}, false, fmt.Errorf("fetch author: %w", err)
	}
	answers, err := s.store.ListAnswersByTopic(id)
	if err != nil {
		return TopicDetail{}, false, fmt.Errorf("fetch answers: %w", err)
	}
	for _, answer := range answers {
		authorName, err := lookupName(answer.AuthorID)
		if err != nil {
			return TopicDetail{}, false, fmt.Errorf("fetch answer author: %w", err)
		}
		detail.Answers = append(detail.Answers, AnswerDetail{Answer: answer, AuthorName: authorName})
	}
	return detail, true, nil
}

// Update runs the update validation chain and applies the non-nil fields.
func (s *TopicService) Update(principal domain.User, id int64, in TopicUpdate) (domain.Topic, error) {
	if err := s.users.EnsureActive(principal); err != nil {
		return domain.Topic{}, err
	}
	for _, rule := range s.updateRules {
		if err := rule.Validate(id, principal, in); err != nil {
			return domain.Topic{}, err
		}
	}
	var updated domain.Topic
	err := s.store.Transaction(func(tx store.Store) error {
		topic, ok, err := tx.GetTopicByID(id)
		if err != nil {
			return fmt.Errorf("fetch topic: %w", err)
		}
		if !ok {
			return ValidationError{Message: "Informe um ID de tópico válido."}
		}
		topic.Update(in.Title, in.Message)
		if err := tx.SaveTopic(&topic); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ValidationError{Message: "Já existe um tópico com o mesmo título e mensagem."}
			}
			return fmt.Errorf("save topic: %w", err)
		}
		updated = topic
		return nil
	})
	if err != nil {
		return domain.Topic{}, err
	}
	return updated, nil
}

// Delete removes the topic when the principal authored it. Authorship is
// compared by id.
func (s *TopicService) Delete(principal domain.User, id int64) error {
	if err := s.users.EnsureActive(principal); err != nil {
		return err
	}
	topic, ok, err := s.store.GetTopicByID(id)
	if err != nil {
		return fmt.Errorf("fetch topic: %w", err)
	}
	if !ok || topic.AuthorID != principal.ID {
		return ValidationError{Message: "Não foi possivel deletar o topico"}
	}
	if err := s.store.DeleteTopic(id); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}

// onAnswerAdded applies one answer-created transition and persists it. The
// answer service calls it inside the transaction that writes the answer.
func (s *TopicService) onAnswerAdded(tx store.Store, topic *domain.Topic) error {
	topic.AnswerAdded()
	if err := tx.SaveTopic(topic); err != nil {
		return fmt.Errorf("save topic status: %w", err)
	}
	return nil
}

// onAnswerRemoved reverts the topic to UNANSWERED when the removed answer
// was the last one. countBefore is the answer count before the deletion.
func (s *TopicService) onAnswerRemoved(tx store.Store, topic *domain.Topic, countBefore int64) error {
	topic.AnswerRemoved(countBefore)
	if err := tx.SaveTopic(topic); err != nil {
		return fmt.Errorf("save topic status: %w", err)
	}
	return nil
}

func validateTopicCreateFields(in TopicCreate) error {
	var fields []FieldError
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "must not be blank"})
	}
	if strings.TrimSpace(in.Message) == "" {
		fields = append(fields, FieldError{Field: "message", Message: "must not be blank"})
	}
	if strings.TrimSpace(in.CourseName) == "" {
		fields = append(fields, FieldError{Field: "courseName", Message: "must not be blank"})
	}
	if len(fields) > 0 {
		return FieldValidationError{Fields: fields}
	}
	return nil
}
