package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"forumhub/internal/app"
	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SaveCourse(&domain.Course{Name: "java"}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	hasher := auth.NewBcryptHasher()
	users := app.NewUserService(st, hasher)
	topics := app.NewTopicService(st, users)
	answers := app.NewAnswerService(st, users, topics)
	authSvc := app.NewAuthService(st, hasher, app.NewTokenService("test-secret"))

	srv := httptest.NewServer(New(Config{
		Auth:    authSvc,
		Users:   users,
		Topics:  topics,
		Answers: answers,
	}).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func decodeInto(t *testing.T, raw []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func register(t *testing.T, srv *httptest.Server, name, email, password string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/usuarios", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, resp.StatusCode, body)
	}
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/login", "", map[string]string{
		"email": email, "password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeInto(t, body, &out)
	if out.Token == "" {
		t.Fatal("expected token")
	}
	return out.Token
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var out struct {
		Message string `json:"message"`
	}
	decodeInto(t, raw, &out)
	return out.Message
}

func topicDetailStatus(t *testing.T, srv *httptest.Server, id int64) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/topicos/%d", srv.URL, id), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("topic detail: status %d body %s", resp.StatusCode, body)
	}
	var out struct {
		Status string `json:"status"`
	}
	decodeInto(t, body, &out)
	return out.Status
}

func TestRegisterAndLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/usuarios", "", map[string]string{
		"name": "Ana", "email": "ana@x.io", "password": "p4ss",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d body %s", resp.StatusCode, body)
	}
	var user struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	decodeInto(t, body, &user)
	if user.ID == 0 || user.Name != "Ana" || user.Email != "ana@x.io" {
		t.Fatalf("unexpected user view: %+v", user)
	}

	login(t, srv, "ana@x.io", "p4ss")

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/login", "", map[string]string{
		"email": "ana@x.io", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d body %s", resp.StatusCode, body)
	}
}

func TestTopicAndAnswerLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	register(t, srv, "Bob", "bob@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")
	bob := login(t, srv, "bob@x.io", "p4ss")

	// Create the topic; it starts unanswered.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, map[string]string{
		"title": "T", "message": "M", "courseName": "java",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic: status %d body %s", resp.StatusCode, body)
	}
	var topic struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decodeInto(t, body, &topic)
	if topic.Status != "UNANSWERED" {
		t.Fatalf("unexpected initial status: %s", topic.Status)
	}
	if loc := resp.Header.Get("Location"); loc != fmt.Sprintf("/topicos/%d", topic.ID) {
		t.Fatalf("unexpected Location: %q", loc)
	}

	// Two answers advance the status to unsolved, then solved.
	var answerIDs []int64
	for i, status := range []string{"UNSOLVED", "SOLVED"} {
		resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/respostas/%d", srv.URL, topic.ID), bob, map[string]string{
			"message": fmt.Sprintf("r%d", i+1), "solution": "x",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create answer %d: status %d body %s", i+1, resp.StatusCode, body)
		}
		var answer struct {
			ID int64 `json:"id"`
		}
		decodeInto(t, body, &answer)
		answerIDs = append(answerIDs, answer.ID)
		if loc := resp.Header.Get("Location"); loc != fmt.Sprintf("/respostas/%d", answer.ID) {
			t.Fatalf("unexpected Location: %q", loc)
		}
		if got := topicDetailStatus(t, srv, topic.ID); got != status {
			t.Fatalf("after answer %d: got %s want %s", i+1, got, status)
		}
	}

	// Deleting the newer answer keeps the topic solved.
	resp, body = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/respostas/%d", srv.URL, answerIDs[1]), bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete second answer: status %d body %s", resp.StatusCode, body)
	}
	if got := topicDetailStatus(t, srv, topic.ID); got != "SOLVED" {
		t.Fatalf("after deleting second answer: %s", got)
	}

	// Deleting the last answer reverts the topic to unanswered.
	resp, body = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/respostas/%d", srv.URL, answerIDs[0]), bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete first answer: status %d body %s", resp.StatusCode, body)
	}
	if got := topicDetailStatus(t, srv, topic.ID); got != "UNANSWERED" {
		t.Fatalf("after deleting last answer: %s", got)
	}
}

func TestDuplicateTopicRejectedOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	create := map[string]string{"title": "T", "message": "M", "courseName": "java"}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, create)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic: status %d body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, create)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate topic: status %d body %s", resp.StatusCode, body)
	}
	if msg := errorMessage(t, body); msg != "Tópico já existente: T" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestForeignTopicDeleteRejectedOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	register(t, srv, "Bob", "bob@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")
	bob := login(t, srv, "bob@x.io", "p4ss")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, map[string]string{
		"title": "T", "message": "M", "courseName": "java",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic: status %d body %s", resp.StatusCode, body)
	}
	var topic struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, body, &topic)

	resp, body = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/topicos/%d", srv.URL, topic.ID), bob, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("foreign delete: status %d body %s", resp.StatusCode, body)
	}
	if msg := errorMessage(t, body); msg != "Não foi possivel deletar o topico" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestSoftDeletedUserKeepsTokenButCannotMutate(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/usuarios", ana, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("soft delete: status %d body %s", resp.StatusCode, body)
	}

	// The still-valid token resolves, but mutations are rejected as a
	// business failure rather than an authentication one.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, map[string]string{
		"title": "T", "message": "M", "courseName": "java",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inactive create: status %d body %s", resp.StatusCode, body)
	}
	if msg := errorMessage(t, body); msg != "user inactive" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestUnknownCourseRejectedOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, map[string]string{
		"title": "Q", "message": "M", "courseName": "rust",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown course: status %d body %s", resp.StatusCode, body)
	}
	if msg := errorMessage(t, body); msg != "Curso não encontrado: rust" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/topicos"},
		{http.MethodGet, "/usuarios"},
		{http.MethodGet, "/usuarios/topicos"},
		{http.MethodPost, "/respostas/1"},
		{http.MethodDelete, "/usuarios"},
	} {
		resp, body := doJSON(t, tc.method, srv.URL+tc.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status %d body %s", tc.method, tc.path, resp.StatusCode, body)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/topicos", bytes.NewReader(nil))
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", resp.StatusCode)
	}
}

func TestPublicReadsAndNotFound(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/topicos", ana, map[string]string{
		"title": "T", "message": "M", "courseName": "java",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic: status %d body %s", resp.StatusCode, body)
	}

	// Listing is public and paginated.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/topicos?page=0&size=5", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list topics: status %d body %s", resp.StatusCode, body)
	}
	var page struct {
		Items []json.RawMessage `json:"items"`
		Page  int               `json:"page"`
		Size  int               `json:"size"`
		Total int64             `json:"total"`
	}
	decodeInto(t, body, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Size != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}

	// A missing topic is a plain 404 with an empty body.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/topicos/999", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing topic: status %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) != 0 {
		t.Fatalf("expected empty body, got %s", body)
	}
}

func TestListUsersToleratesForeignSortKey(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	// "title" is a topic sort key; on the users listing it falls back to the
	// default order instead of failing.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/usuarios?sort=title", ana, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users with sort=title: status %d body %s", resp.StatusCode, body)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	decodeInto(t, body, &page)
	if page.Total != 1 {
		t.Fatalf("unexpected total: %d", page.Total)
	}
}

func TestListUsersReturnsNamesOnly(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Ana", "ana@x.io", "p4ss")
	register(t, srv, "Bob", "bob@x.io", "p4ss")
	ana := login(t, srv, "ana@x.io", "p4ss")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/usuarios", ana, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: status %d body %s", resp.StatusCode, body)
	}
	var page struct {
		Items []map[string]any `json:"items"`
		Total int64            `json:"total"`
	}
	decodeInto(t, body, &page)
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	for _, item := range page.Items {
		if _, ok := item["name"]; !ok {
			t.Fatalf("expected name field, got %v", item)
		}
		if _, ok := item["email"]; ok {
			t.Fatalf("user list must not expose emails, got %v", item)
		}
	}
}
