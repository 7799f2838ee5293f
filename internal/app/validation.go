package app

import (
	"fmt"

	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// TopicCreate carries the input for topic creation.
type TopicCreate struct {
	Title      string
	Message    string
	CourseName string
}

// TopicUpdate carries the optional topic update fields.
type TopicUpdate struct {
	Title   *string
	Message *string
}

// CreateTopicRule is a single pre-condition checked before a topic is
// created. Rules run in order; the first failure aborts the chain.
type CreateTopicRule interface {
	Validate(in TopicCreate) error
}

// UpdateTopicRule is a single pre-condition checked before a topic is
// updated.
type UpdateTopicRule interface {
	Validate(id int64, principal domain.User, in TopicUpdate) error
}

// topicUnique rejects creation when a topic with the same title and message
// already exists, ignoring case.
type topicUnique struct {
	store store.Store
}

func (r topicUnique) Validate(in TopicCreate) error {
	_, ok, err := r.store.GetTopicByTitleAndMessage(in.Title, in.Message)
	if err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if ok {
		return ValidationError{Message: "Tópico já existente: " + in.Title}
	}
	return nil
}

// courseExists rejects creation when the named course is unknown.
type courseExists struct {
	store store.Store
}

func (r courseExists) Validate(in TopicCreate) error {
	_, ok, err := r.store.GetCourseByName(in.CourseName)
	if err != nil {
		return fmt.Errorf("lookup course: %w", err)
	}
	if !ok {
		return ValidationError{Message: "Curso não encontrado: " + in.CourseName}
	}
	return nil
}

// topicExists rejects an update whose target id resolves to nothing.
type topicExists struct {
	store store.Store
}

func (r topicExists) Validate(id int64, _ domain.User, _ TopicUpdate) error {
	_, ok, err := r.store.GetTopicByID(id)
	if err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if !ok {
		return ValidationError{Message: "Informe um ID de tópico válido."}
	}
	return nil
}

// authorizedUser rejects an update coming from anyone but the topic's
// author. Authorship is compared by id.
type authorizedUser struct {
	store store.Store
}

func (r authorizedUser) Validate(id int64, principal domain.User, _ TopicUpdate) error {
	topic, ok, err := r.store.GetTopicByID(id)
	if err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if !ok {
		return ValidationError{Message: "Informe um ID de tópico válido."}
	}
	if topic.AuthorID != principal.ID {
		return ValidationError{Message: "Usuário não autorizado para atualizar o tópico."}
	}
	return nil
}

// atLeastOneField rejects an update that names nothing to change.
type atLeastOneField struct{}

func (atLeastOneField) Validate(_ int64, _ domain.User, in TopicUpdate) error {
	if in.Title == nil && in.Message == nil {
		return ValidationError{Message: "É necessário informar ao menos um campo para atualização."}
	}
	return nil
}

// titleMessageUnique rejects an update when another topic already uses the
// proposed title and message. The target topic is excluded from the check so
// identity-preserving no-op updates succeed.
type titleMessageUnique struct {
	store store.Store
}

func (r titleMessageUnique) Validate(id int64, _ domain.User, in TopicUpdate) error {
	topic, ok, err := r.store.GetTopicByID(id)
	if err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if !ok {
		return nil // topicExists already reported the missing target
	}
	title, message := topic.Title, topic.Message
	if in.Title != nil {
		title = *in.Title
	}
	if in.Message != nil {
		message = *in.Message
	}
	existing, ok, err := r.store.GetTopicByTitleAndMessage(title, message)
	if err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if ok && existing.ID != id {
		return ValidationError{Message: "Já existe um tópico com o mesmo título e mensagem."}
	}
	return nil
}
