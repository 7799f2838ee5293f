package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"forumhub/internal/app"
	"forumhub/internal/util"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Auth    *app.AuthService
	Users   *app.UserService
	Topics  *app.TopicService
	Answers *app.AnswerService
}

// Server exposes the forum HTTP endpoints.
type Server struct {
	auth    *app.AuthService
	users   *app.UserService
	topics  *app.TopicService
	answers *app.AnswerService
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		auth:    cfg.Auth,
		users:   cfg.Users,
		topics:  cfg.Topics,
		answers: cfg.Answers,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the shared middleware applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithSecurityHeaders(h)
	h = util.WithCORS(h)
	h = util.WithRequestLog("forumhub", h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/login", s.handleLogin)

	// users (POST is public registration, the rest require a bearer token)
	s.mux.HandleFunc("/usuarios", s.handleUsers)
	s.mux.Handle("/usuarios/topicos", s.authenticated(s.handleOwnTopics))

	// topics (reads are public, mutations require a bearer token)
	s.mux.HandleFunc("/topicos", s.handleTopics)
	s.mux.HandleFunc("/topicos/", s.handleTopicByID)

	// answers (all operations require a bearer token)
	s.mux.HandleFunc("/respostas/", s.handleAnswerByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		next(w, r, principal)
	})
}

// principal resolves the bearer token to a user and writes the 401 itself
// when that fails. Callers only proceed when ok is true.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	principal, err := s.auth.PrincipalFromToken(token)
	if err != nil {
		s.writeAppError(w, err)
		return domain.User{}, false
	}
	return principal, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	_, token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req registerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.users.Register(req.Name, req.Email, req.Password)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserView(user))
	case http.MethodGet:
		if _, ok := s.principal(w, r); !ok {
			return
		}
		p := pagination(r)
		users, total, err := s.users.ListActive(p)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		items := make([]nameView, 0, len(users))
		for _, u := range users {
			items = append(items, nameView{Name: u.Name})
		}
		writeJSON(w, http.StatusOK, pageOf(items, p, total))
	case http.MethodPut:
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		var req userUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.users.UpdateSelf(principal, app.UserUpdate{Name: req.Name, Password: req.Password})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(user))
	case http.MethodDelete:
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		if err := s.users.SoftDelete(principal); err != nil {
			s.writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleOwnTopics(w http.ResponseWriter, r *http.Request, principal domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p := pagination(r)
	topics, total, err := s.users.ListOwnTopics(principal, p)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(toTopicViews(topics), p, total))
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p := pagination(r)
		topics, total, err := s.topics.ListAll(p)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageOf(toTopicViews(topics), p, total))
	case http.MethodPost:
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		var req topicCreateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		topic, err := s.topics.Create(principal, app.TopicCreate{
			Title:      req.Title,
			Message:    req.Message,
			CourseName: req.CourseName,
		})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/topicos/%d", topic.ID))
		writeJSON(w, http.StatusCreated, toTopicView(topic))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTopicByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/topicos/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		detail, ok, err := s.topics.Detail(id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toTopicDetailView(detail))
	case http.MethodPut:
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		var req topicUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		topic, err := s.topics.Update(principal, id, app.TopicUpdate{Title: req.Title, Message: req.Message})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTopicView(topic))
	case http.MethodDelete:
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}
		if err := s.topics.Delete(principal, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		methodNotAllowed(w)
	}
}

// handleAnswerByID serves /respostas/{id}. On POST the path segment is the
// topic id the new answer belongs to; on the other methods it is the answer id.
func (s *Server) handleAnswerByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/respostas/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req answerCreateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		answer, err := s.answers.Create(principal, id, app.AnswerCreate{
			Message:  req.Message,
			Solution: req.Solution,
		})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/respostas/%d", answer.ID))
		writeJSON(w, http.StatusCreated, toAnswerView(answer))
	case http.MethodGet:
		detail, ok, err := s.answers.Detail(id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toAnswerDetailView(detail))
	case http.MethodPut:
		var req answerUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		answer, err := s.answers.Update(principal, id, app.AnswerUpdate{
			Message:  req.Message,
			Solution: req.Solution,
		})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAnswerView(answer))
	case http.MethodDelete:
		if err := s.answers.Delete(principal, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		methodNotAllowed(w)
	}
}

// writeAppError is the single translator from service errors to HTTP
// responses.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	var fieldErr app.FieldValidationError
	var validationErr app.ValidationError
	switch {
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, fieldErr.Fields)
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, app.ErrAuthentication), errors.Is(err, app.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// pathID extracts the numeric id after the given route prefix.
func pathID(r *http.Request, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pagination parses page, size, and sort from the query string. Sort accepts
// an optional ",desc" suffix.
func pagination(r *http.Request) store.Pagination {
	q := r.URL.Query()
	var p store.Pagination
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Page = n
		}
	}
	if v := q.Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Size = n
		}
	}
	if v := q.Get("sort"); v != "" {
		field, dir, split := strings.Cut(v, ",")
		p.Sort = field
		p.Desc = split && strings.EqualFold(dir, "desc")
	}
	return p.Normalize()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// request bodies

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type topicCreateRequest struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	CourseName string `json:"courseName"`
}

type topicUpdateRequest struct {
	Title   *string `json:"title"`
	Message *string `json:"message"`
}

type answerCreateRequest struct {
	Message  string `json:"message"`
	Solution string `json:"solution"`
}

type answerUpdateRequest struct {
	Message  *string `json:"message"`
	Solution *string `json:"solution"`
}

// response views

type tokenResponse struct {
	Token string `json:"token"`
}

type userView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserView(u domain.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email}
}

type nameView struct {
	Name string `json:"name"`
}

type topicView struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	AuthorID     int64     `json:"authorId"`
	CourseID     int64     `json:"courseId"`
	CreationDate time.Time `json:"creationDate"`
}

func toTopicView(t domain.Topic) topicView {
	return topicView{
		ID:           t.ID,
		Title:        t.Title,
		Message:      t.Message,
		Status:       string(t.Status),
		AuthorID:     t.AuthorID,
		CourseID:     t.CourseID,
		CreationDate: t.CreatedAt,
	}
}

func toTopicViews(topics []domain.Topic) []topicView {
	views := make([]topicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, toTopicView(t))
	}
	return views
}

type topicDetailView struct {
	ID           int64              `json:"id"`
	Title        string             `json:"title"`
	Message      string             `json:"message"`
	Status       string             `json:"status"`
	AuthorName   string             `json:"authorName"`
	CourseID     int64              `json:"courseId"`
	CreationDate time.Time          `json:"creationDate"`
	Answers      []answerDetailView `json:"answers"`
}

func toTopicDetailView(d app.TopicDetail) topicDetailView {
	answers := make([]answerDetailView, 0, len(d.Answers))
	for _, a := range d.Answers {
		answers = append(answers, toAnswerDetailView(a))
	}
	return topicDetailView{
		ID:           d.Topic.ID,
		Title:        d.Topic.Title,
		Message:      d.Topic.Message,
		Status:       string(d.Topic.Status),
		AuthorName:   d.AuthorName,
		CourseID:     d.Topic.CourseID,
		CreationDate: d.Topic.CreatedAt,
		Answers:      answers,
	}
}

type answerView struct {
	ID           int64     `json:"id"`
	Message      string    `json:"message"`
	Solution     string    `json:"solution,omitempty"`
	TopicID      int64     `json:"topicId"`
	AuthorID     int64     `json:"authorId"`
	CreationDate time.Time `json:"creationDate"`
}

func toAnswerView(a domain.Answer) answerView {
	return answerView{
		ID:           a.ID,
		Message:      a.Message,
		Solution:     a.Solution,
		TopicID:      a.TopicID,
		AuthorID:     a.AuthorID,
		CreationDate: a.CreatedAt,
	}
}

type answerDetailView struct {
	ID           int64     `json:"id"`
	Message      string    `json:"message"`
	Solution     string    `json:"solution,omitempty"`
	TopicID      int64     `json:"topicId"`
	AuthorName   string    `json:"authorName"`
	CreationDate time.Time `json:"creationDate"`
}

func toAnswerDetailView(d app.AnswerDetail) answerDetailView {
	return answerDetailView{
		ID:           d.Answer.ID,
		Message:      d.Answer.Message,
		Solution:     d.Answer.Solution,
		TopicID:      d.Answer.TopicID,
		AuthorName:   d.AuthorName,
		CreationDate: d.Answer.CreatedAt,
	}
}

type pageView struct {
	Items any   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

func pageOf(items any, p store.Pagination, total int64) pageView {
	return pageView{Items: items, Page: p.Page, Size: p.Size, Total: total}
}
