package services

import (
	"testing"

	"gorm.io/gorm"

	"triptribe/internal/locking"
	"triptribe/internal/models"
	"triptribe/internal/testutil"
)

// testFixture bundles the per-test database and lock registry.
type testFixture struct {
	db    *gorm.DB
	locks *locking.Registry
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return &testFixture{
		db:    testutil.SetupTestDB(t),
		locks: locking.NewRegistry(),
	}
}

func (f *testFixture) teardown(t *testing.T) {
	testutil.TeardownTestDB(t, f.db)
}

func (f *testFixture) user(t *testing.T) *models.User {
	return testutil.CreateTestUser(t, f.db)
}
