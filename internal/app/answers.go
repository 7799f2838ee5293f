package app

import (
	"fmt"
	"strings"
	"time"

	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// AnswerService owns answers and propagates status changes to their topic.
type AnswerService struct {
	store  store.Store
	users  *UserService
	topics *TopicService
}

// NewAnswerService wires storage and the topic transition hooks.
func NewAnswerService(st store.Store, users *UserService, topics *TopicService) *AnswerService {
	return &AnswerService{store: st, users: users, topics: topics}
}

// AnswerCreate carries the input for answer creation.
type AnswerCreate struct {
	Message  string
	Solution string
}

// AnswerUpdate carries the optional answer update fields.
type AnswerUpdate struct {
	Message  *string
	Solution *string
}

// Create posts an answer on a topic. The status transition runs before the
// answer is persisted; both share one transaction, so a failed write rolls
// the transition back with it.
func (s *AnswerService) Create(principal domain.User, topicID int64, in AnswerCreate) (domain.Answer, error) {
	if err := s.users.EnsureActive(principal); err != nil {
		return domain.Answer{}, err
	}
	if strings.TrimSpace(in.Message) == "" {
		return domain.Answer{}, FieldValidationError{Fields: []FieldError{
			{Field: "message", Message: "must not be blank"},
		}}
	}
	var created domain.Answer
	err := s.store.Transaction(func(tx store.Store) error {
		topic, ok, err := tx.GetTopicByID(topicID)
		if err != nil {
			return fmt.Errorf("fetch topic: %w", err)
		}
		if !ok {
			return ValidationError{Message: "Tópico não encontrado"}
		}
		if err := s.topics.onAnswerAdded(tx, &topic); err != nil {
			return err
		}
		answer := domain.Answer{
			Message:   in.Message,
			Solution:  in.Solution,
			TopicID:   topicID,
			AuthorID:  principal.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.SaveAnswer(&answer); err != nil {
			return fmt.Errorf("save answer: %w", err)
		}
		created = answer
		return nil
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return created, nil
}

// GetByID is a pure lookup; the HTTP layer maps a miss to 404.
func (s *AnswerService) GetByID(id int64) (domain.Answer, bool, error) {
	return s.store.GetAnswerByID(id)
}

// Detail resolves an answer together with its author's display name.
func (s *AnswerService) Detail(id int64) (AnswerDetail, bool, error) {
	answer, ok, err := s.store.GetAnswerByID(id)
	if err != nil || !ok {
		return AnswerDetail{}, false, err
	}
	detail := AnswerDetail{Answer: answer}
	author, ok, err := s.store.GetUserByID(answer.AuthorID)
	if err != nil {
		return AnswerDetail{}, false, fmt.Errorf("fetch author: %w", err)
	}
	if ok {
		detail.AuthorName = author.Name
	}
	return detail, true, nil
}

// Update applies the non-nil fields to an answer the principal authored.
func (s *AnswerService) Update(principal domain.User, id int64, in AnswerUpdate) (domain.Answer, error) {
	if err := s.users.EnsureActive(principal); err != nil {
		return domain.Answer{}, err
	}
	answer, err := s.ownedAnswer(principal, id)
	if err != nil {
		return domain.Answer{}, err
	}
	answer.Update(in.Message, in.Solution)
	if err := s.store.SaveAnswer(&answer); err != nil {
		return domain.Answer{}, fmt.Errorf("save answer: %w", err)
	}
	return answer, nil
}

// Delete removes an answer the principal authored and lets the topic revert
// to UNANSWERED when it was the last one.
func (s *AnswerService) Delete(principal domain.User, id int64) error {
	if err := s.users.EnsureActive(principal); err != nil {
		return err
	}
	answer, err := s.ownedAnswer(principal, id)
	if err != nil {
		return err
	}
	return s.store.Transaction(func(tx store.Store) error {
		countBefore, err := tx.CountAnswersByTopic(answer.TopicID)
		if err != nil {
			return fmt.Errorf("count answers: %w", err)
		}
		if err := tx.DeleteAnswer(id); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		topic, ok, err := tx.GetTopicByID(answer.TopicID)
		if err != nil {
			return fmt.Errorf("fetch topic: %w", err)
		}
		if !ok {
			return nil
		}
		return s.topics.onAnswerRemoved(tx, &topic, countBefore)
	})
}

func (s *AnswerService) ownedAnswer(principal domain.User, id int64) (domain.Answer, error) {
	answer, ok, err := s.store.GetAnswerByID(id)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("fetch answer: %w", err)
	}
	if !ok {
		return domain.Answer{}, ValidationError{Message: "Resposta não encontrada"}
	}
	if answer.AuthorID != principal.ID {
		return domain.Answer{}, ValidationError{Message: "Você não tem permissão para fazer essa operação"}
	}
	return answer, nil
}
