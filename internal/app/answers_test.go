package app

import (
	"errors"
	"testing"

	"forumhub/pkg/domain"
)

func (f forumFixture) topicStatus(t *testing.T, id int64) domain.TopicStatus {
	t.Helper()
	topic, ok, err := f.store.GetTopicByID(id)
	if err != nil || !ok {
		t.Fatalf("topic %d lookup: ok=%v err=%v", id, ok, err)
	}
	return topic.Status
}

func TestAnswerLifecycleDrivesTopicStatus(t *testing.T) {
	f := newForum(t)
	ana := mustRegister(t, f.users, "Ana", "ana@x.io", "p4ss")
	bob := mustRegister(t, f.users, "Bob", "bob@x.io", "p4ss")
	topic := f.createTopic(t, ana, "T", "M")

	r1, err := f.answers.Create(bob, topic.ID, AnswerCreate{Message: "r1", Solution: "x"})
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusUnsolved {
		t.Fatalf("after first answer: %s", got)
	}

	r2, err := f.answers.Create(bob, topic.ID, AnswerCreate{Message: "r2", Solution: "y"})
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusSolved {
		t.Fatalf("after second answer: %s", got)
	}

	// A third answer does not move a solved topic.
	r3, err := f.answers.Create(ana, topic.ID, AnswerCreate{Message: "r3"})
	if err != nil {
		t.Fatalf("third answer: %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusSolved {
		t.Fatalf("after third answer: %s", got)
	}
	if err := f.answers.Delete(ana, r3.ID); err != nil {
		t.Fatalf("delete third answer: %v", err)
	}

	// Deleting one of two answers leaves the topic solved.
	if err := f.answers.Delete(bob, r2.ID); err != nil {
		t.Fatalf("delete second answer: %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusSolved {
		t.Fatalf("after deleting second answer: %s", got)
	}

	// Deleting the last answer reverts the topic to unanswered.
	if err := f.answers.Delete(bob, r1.ID); err != nil {
		t.Fatalf("delete first answer: %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusUnanswered {
		t.Fatalf("after deleting last answer: %s", got)
	}
}

func TestCreateAnswerRejectsMissingTopic(t *testing.T) {
	f := newForum(t)
	bob := mustRegister(t, f.users, "Bob", "bob@x.io", "p4ss")

	_, err := f.answers.Create(bob, 999, AnswerCreate{Message: "r"})
	if msg := validationMessage(t, err); msg != "Tópico não encontrado" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestCreateAnswerRejectsBlankMessage(t *testing.T) {
	f := newForum(t)
	ana := mustRegister(t, f.users, "Ana", "ana@x.io", "p4ss")
	topic := f.createTopic(t, ana, "T", "M")

	_, err := f.answers.Create(ana, topic.ID, AnswerCreate{Message: "   "})
	var fe FieldValidationError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldValidationError, got %v", err)
	}
	if got := f.topicStatus(t, topic.ID); got != domain.StatusUnanswered {
		t.Fatalf("rejected answer must not transition the topic: %s", got)
	}
}

func TestUpdateAnswerOnlyByAuthor(t *testing.T) {
	f := newForum(t)
	ana := mustRegister(t, f.users, "Ana", "ana@x.io", "p4ss")
	bob := mustRegister(t, f.users, "Bob", "bob@x.io", "p4ss")
	topic := f.createTopic(t, ana, "T", "M")
	answer, err := f.answers.Create(bob, topic.ID, AnswerCreate{Message: "r1"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	message := "edited"
	if _, err := f.answers.Update(ana, answer.ID, AnswerUpdate{Message: &message}); validationMessage(t, err) != "Você não tem permissão para fazer essa operação" {
		t.Fatalf("foreign update: got %v", err)
	}
	if _, err := f.answers.Update(bob, 999, AnswerUpdate{Message: &message}); validationMessage(t, err) != "Resposta não encontrada" {
		t.Fatalf("missing answer: got %v", err)
	}

	updated, err := f.answers.Update(bob, answer.ID, AnswerUpdate{Message: &message})
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Message != "edited" || updated.Solution != answer.Solution {
		t.Fatalf("unexpected answer after update: %+v", updated)
	}
}

func TestDeleteAnswerOnlyByAuthor(t *testing.T) {
	f := newForum(t)
	ana := mustRegister(t, f.users, "Ana", "ana@x.io", "p4ss")
	bob := mustRegister(t, f.users, "Bob", "bob@x.io", "p4ss")
	topic := f.createTopic(t, ana, "T", "M")
	answer, err := f.answers.Create(bob, topic.ID, AnswerCreate{Message: "r1"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if err := f.answers.Delete(ana, answer.ID); validationMessage(t, err) != "Você não tem permissão para fazer essa operação" {
		t.Fatalf("foreign delete: got %v", err)
	}
	if err := f.answers.Delete(bob, answer.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if _, ok, _ := f.store.GetAnswerByID(answer.ID); ok {
		t.Fatal("expected answer gone")
	}
}

func TestAnswerDetailResolvesAuthorName(t *testing.T) {
	f := newForum(t)
	ana := mustRegister(t, f.users, "Ana", "ana@x.io", "p4ss")
	topic := f.createTopic(t, ana, "T", "M")
	answer, err := f.answers.Create(ana, topic.ID, AnswerCreate{Message: "r1"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	detail, ok, err := f.answers.Detail(answer.ID)
	if err != nil || !ok {
		t.Fatalf("detail: ok=%v err=%v", ok, err)
	}
	if detail.AuthorName != "Ana" || detail.Answer.ID != answer.ID {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if _, ok, err := f.answers.Detail(999); err != nil || ok {
		t.Fatalf("missing answer: ok=%v err=%v", ok, err)
	}
}
