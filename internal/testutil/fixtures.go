package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"triptribe/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTrip creates a trip whose participant set is the given users.
// The first user is the creator.
func CreateTestTrip(t *testing.T, db *gorm.DB, users ...*models.User) *models.Trip {
	t.Helper()

	if len(users) == 0 {
		t.Fatal("a trip needs at least one participant")
	}

	trip := &models.Trip{
		CreatorID: users[0].ID,
		Name:      fmt.Sprintf("Test Trip %d", nextID()),
		Currency:  "USD",
	}
	if err := db.Create(trip).Error; err != nil {
		t.Fatalf("failed to create test trip: %v", err)
	}
	for _, u := range users {
		member := &models.TripMember{TripID: trip.ID, UserID: u.ID}
		if err := db.Create(member).Error; err != nil {
			t.Fatalf("failed to add trip member: %v", err)
		}
		trip.Members = append(trip.Members, *member)
	}
	return trip
}

// CreateTestWallet creates an active wallet with the given balance (in cents).
func CreateTestWallet(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		UserID:     userID,
		Balance:    balance,
		Currency:   "USD",
		Status:     models.WalletStatusActive,
		CardNumber: fmt.Sprintf("4242-TRIP-%08d", nextID()),
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestGoal creates an active individual goal for the given creator.
func CreateTestGoal(t *testing.T, db *gorm.DB, creatorID string, target int64, deadline time.Time) *models.SavingsGoal {
	t.Helper()

	goal := &models.SavingsGoal{
		CreatorID: creatorID,
		Name:      fmt.Sprintf("Test Goal %d", nextID()),
		Target:    target,
		Deadline:  deadline,
		Status:    models.GoalStatusActive,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	member := &models.GoalMember{GoalID: goal.ID, UserID: creatorID}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to add goal member: %v", err)
	}
	goal.Members = append(goal.Members, *member)
	return goal
}
