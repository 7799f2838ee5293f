package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"forumhub/pkg/domain"
)

const migrateLockID int64 = 46714671

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &CourseModel{}, &TopicModel{}, &AnswerModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// Case-insensitive uniqueness lives in the store as well as in the
		// validation layer, so concurrent creations cannot slip through.
		if err := tx.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_course_models_lower_name
			ON course_models (lower(name));
		`).Error; err != nil {
			return fmt.Errorf("course name index: %w", err)
		}
		if err := tx.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_topic_models_lower_title_message
			ON topic_models (lower(title), lower(message));
		`).Error; err != nil {
			return fmt.Errorf("topic title+message index: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'topic_models'
					AND constraint_name = 'topic_models_course_id_fkey'
				) THEN
					ALTER TABLE topic_models
					ADD CONSTRAINT topic_models_course_id_fkey
					FOREIGN KEY (course_id) REFERENCES course_models(id);
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'answer_models'
					AND constraint_name = 'answer_models_topic_id_fkey'
				) THEN
					ALTER TABLE answer_models
					ADD CONSTRAINT answer_models_topic_id_fkey
					FOREIGN KEY (topic_id) REFERENCES topic_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Transaction runs fn against a store bound to one database transaction.
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// SaveUser creates or updates a user, filling the ID on create.
func (s *GormStore) SaveUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Save(&model).Error; err != nil {
		return translateWriteError(err)
	}
	u.ID = model.ID
	return nil
}

// GetUserByEmail looks up a user by exact email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListActiveUsers returns a page of active users plus the total count.
func (s *GormStore) ListActiveUsers(p Pagination) ([]domain.User, int64, error) {
	p = p.Normalize()
	var total int64
	if err := s.db.Model(&UserModel{}).Where("active = ?", true).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	if err := s.db.Where("active = ?", true).
		Order(orderClause(p, userSortColumns, "name")).
		Offset(p.Offset()).
		Limit(p.Size).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, userFromModel(m))
	}
	return users, total, nil
}

// SaveCourse creates or updates a course, filling the ID on create.
func (s *GormStore) SaveCourse(c *domain.Course) error {
	model := CourseModel{ID: c.ID, Name: c.Name}
	if err := s.db.Save(&model).Error; err != nil {
		return translateWriteError(err)
	}
	c.ID = model.ID
	return nil
}

// GetCourseByName looks up a course by name, case-insensitively.
func (s *GormStore) GetCourseByName(name string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.Where("lower(name) = lower(?)", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return domain.Course{ID: model.ID, Name: model.Name}, true, nil
}

// SaveTopic creates or updates a topic, filling the ID on create.
func (s *GormStore) SaveTopic(t *domain.Topic) error {
	model := topicToModel(*t)
	if err := s.db.Save(&model).Error; err != nil {
		return translateWriteError(err)
	}
	t.ID = model.ID
	return nil
}

// GetTopicByID returns a topic by ID.
func (s *GormStore) GetTopicByID(id int64) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

// GetTopicByTitleAndMessage finds a topic by title and message, ignoring case.
func (s *GormStore) GetTopicByTitleAndMessage(title, message string) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.
		Where("lower(title) = lower(?) AND lower(message) = lower(?)", title, message).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

// ListTopics returns a page of topics plus the total count.
func (s *GormStore) ListTopics(p Pagination) ([]domain.Topic, int64, error) {
	return s.listTopics(p)
}

// ListTopicsByAuthor returns a page of one author's topics plus the total.
func (s *GormStore) ListTopicsByAuthor(authorID int64, p Pagination) ([]domain.Topic, int64, error) {
	return s.listTopics(p, "author_id = ?", authorID)
}

func (s *GormStore) listTopics(p Pagination, conds ...any) ([]domain.Topic, int64, error) {
	p = p.Normalize()
	query := s.db.Model(&TopicModel{})
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []TopicModel
	if err := query.
		Order(orderClause(p, topicSortColumns, "created_at")).
		Offset(p.Offset()).
		Limit(p.Size).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	topics := make([]domain.Topic, 0, len(models))
	for _, m := range models {
		topics = append(topics, topicFromModel(m))
	}
	return topics, total, nil
}

// DeleteTopic removes a topic; its answers go with it via FK cascade.
func (s *GormStore) DeleteTopic(id int64) error {
	return s.db.Delete(&TopicModel{}, "id = ?", id).Error
}

// SaveAnswer creates or updates an answer, filling the ID on create.
func (s *GormStore) SaveAnswer(a *domain.Answer) error {
	model := answerToModel(*a)
	if err := s.db.Save(&model).Error; err != nil {
		return translateWriteError(err)
	}
	a.ID = model.ID
	return nil
}

// GetAnswerByID returns an answer by ID.
func (s *GormStore) GetAnswerByID(id int64) (domain.Answer, bool, error) {
	var model AnswerModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Answer{}, false, nil
		}
		return domain.Answer{}, false, err
	}
	return answerFromModel(model), true, nil
}

// ListAnswersByTopic returns a topic's answers in creation order.
func (s *GormStore) ListAnswersByTopic(topicID int64) ([]domain.Answer, error) {
	var models []AnswerModel
	if err := s.db.Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	answers := make([]domain.Answer, 0, len(models))
	for _, m := range models {
		answers = append(answers, answerFromModel(m))
	}
	return answers, nil
}

// CountAnswersByTopic returns the number of answers on a topic.
func (s *GormStore) CountAnswersByTopic(topicID int64) (int64, error) {
	var count int64
	if err := s.db.Model(&AnswerModel{}).Where("topic_id = ?", topicID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAnswer removes a single answer.
func (s *GormStore) DeleteAnswer(id int64) error {
	return s.db.Delete(&AnswerModel{}, "id = ?", id).Error
}

// Sortable columns per entity. An unknown sort key falls back to the
// entity's default so a stray query parameter never reaches the database.
var (
	topicSortColumns = map[string]string{
		"creationDate": "created_at",
		"title":        "title",
	}
	userSortColumns = map[string]string{
		"name": "name",
	}
)

func orderClause(p Pagination, columns map[string]string, defaultColumn string) string {
	column, ok := columns[p.Sort]
	if !ok {
		column = defaultColumn
	}
	if p.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

func topicToModel(t domain.Topic) TopicModel {
	return TopicModel{
		ID:        t.ID,
		Title:     t.Title,
		Message:   t.Message,
		Status:    string(t.Status),
		AuthorID:  t.AuthorID,
		CourseID:  t.CourseID,
		CreatedAt: t.CreatedAt,
	}
}

func topicFromModel(m TopicModel) domain.Topic {
	return domain.Topic{
		ID:        m.ID,
		Title:     m.Title,
		Message:   m.Message,
		Status:    domain.TopicStatus(m.Status),
		AuthorID:  m.AuthorID,
		CourseID:  m.CourseID,
		CreatedAt: m.CreatedAt,
	}
}

func answerToModel(a domain.Answer) AnswerModel {
	return AnswerModel{
		ID:        a.ID,
		Message:   a.Message,
		Solution:  a.Solution,
		TopicID:   a.TopicID,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt,
	}
}

func answerFromModel(m AnswerModel) domain.Answer {
	return domain.Answer{
		ID:        m.ID,
		Message:   m.Message,
		Solution:  m.Solution,
		TopicID:   m.TopicID,
		AuthorID:  m.AuthorID,
		CreatedAt: m.CreatedAt,
	}
}
