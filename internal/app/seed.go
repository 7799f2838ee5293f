package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// SeedData describes the records guaranteed to exist after startup: the
// administrator account and the course catalog, both sourced from
// configuration.
type SeedData struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
	Courses       []string
}

// EnsureSeedData creates the admin account and any missing courses. It is
// idempotent and safe to run on every startup.
func EnsureSeedData(st store.Store, hasher auth.Hasher, seed SeedData) error {
	email := normalizeEmail(seed.AdminEmail)
	if _, ok, err := st.GetUserByEmail(email); err != nil {
		return fmt.Errorf("check seed admin: %w", err)
	} else if !ok {
		hash, err := hasher.Hash(seed.AdminPassword)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		name := seed.AdminName
		if name == "" {
			name = "admin"
		}
		admin := domain.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Active:       true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := st.SaveUser(&admin); err != nil {
			return fmt.Errorf("save seed admin: %w", err)
		}
		slog.Info("seed admin created", "email", email)
	}

	for _, name := range seed.Courses {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok, err := st.GetCourseByName(name); err != nil {
			return fmt.Errorf("check seed course %q: %w", name, err)
		} else if ok {
			continue
		}
		course := domain.Course{Name: name}
		if err := st.SaveCourse(&course); err != nil {
			return fmt.Errorf("save seed course %q: %w", name, err)
		}
		slog.Info("seed course created", "name", name)
	}
	return nil
}
