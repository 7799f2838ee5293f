package app

import (
	"testing"

	"forumhub/pkg/auth"
	"forumhub/pkg/store"
)

func TestEnsureSeedDataIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	hasher := auth.NewBcryptHasher()
	seed := SeedData{
		AdminName:     "admin",
		AdminEmail:    "Admin@Forum.io",
		AdminPassword: "s3cret",
		Courses:       []string{"java", "spring", " ", ""},
	}

	for i := 0; i < 2; i++ {
		if err := EnsureSeedData(st, hasher, seed); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	admin, ok, err := st.GetUserByEmail("admin@forum.io")
	if err != nil || !ok {
		t.Fatalf("admin lookup: ok=%v err=%v", ok, err)
	}
	if !admin.Active {
		t.Fatal("expected active admin")
	}
	if !hasher.Compare(admin.PasswordHash, "s3cret") {
		t.Fatal("admin password does not verify")
	}

	users, total, err := st.ListActiveUsers(store.Pagination{})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Fatalf("expected a single admin, got total=%d", total)
	}

	for _, name := range []string{"java", "JAVA", "spring"} {
		if _, ok, err := st.GetCourseByName(name); err != nil || !ok {
			t.Fatalf("course %q lookup: ok=%v err=%v", name, ok, err)
		}
	}
}
