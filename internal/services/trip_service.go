package services

import (
	"errors"
	"sort"

	"gorm.io/gorm"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/models"
	"triptribe/internal/pagination"
)

// tripService handles trip membership and lifecycle.
type tripService struct {
	db          *gorm.DB
	userService UserServicer
}

// NewTripService creates a new TripServicer.
func NewTripService(db *gorm.DB, userService UserServicer) TripServicer {
	return &tripService{
		db:          db,
		userService: userService,
	}
}

// CreateTrip creates a trip with the creator and the given members as
// participants. The creator is always a member, listed or not.
func (s *tripService) CreateTrip(creatorID, name, description, currency string, memberIDs []string) (*models.Trip, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "trip name is required")
	}

	// Deduplicate and always include the creator
	seen := map[string]bool{creatorID: true}
	ids := []string{creatorID}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	// Every member must be a registered user
	for _, id := range ids {
		if _, err := s.userService.GetUserByID(id); err != nil {
			return nil, err
		}
	}

	trip := &models.Trip{
		CreatorID:   creatorID,
		Name:        name,
		Description: description,
		Currency:    currency,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trip).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, id := range ids {
			member := &models.TripMember{TripID: trip.ID, UserID: id}
			if err := tx.Create(member).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			trip.Members = append(trip.Members, *member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return trip, nil
}

// GetTripByID retrieves a trip with its members. The caller must be a
// participant.
func (s *tripService) GetTripByID(userID, tripID string) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.Preload("Members").Where("id = ?", tripID).First(&trip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTripNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !trip.HasMember(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return &trip, nil
}

// GetUserTrips retrieves a paginated list of trips the user participates in.
func (s *tripService) GetUserTrips(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trip], error) {
	page.Defaults()

	base := s.db.Model(&models.Trip{}).
		Joins("JOIN trip_members ON trip_members.trip_id = trips.id").
		Where("trip_members.user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trips []models.Trip
	if err := base.Preload("Members").
		Scopes(pagination.Paginate(page)).
		Order("trips.created_at DESC").
		Find(&trips).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trips, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// AddMember adds a registered user to an existing trip. Only current
// participants may add members; adding an existing member is a no-op.
func (s *tripService) AddMember(userID, tripID, newMemberID string) (*models.Trip, error) {
	trip, err := s.GetTripByID(userID, tripID)
	if err != nil {
		return nil, err
	}

	if trip.HasMember(newMemberID) {
		return trip, nil
	}

	if _, err := s.userService.GetUserByID(newMemberID); err != nil {
		return nil, err
	}

	member := &models.TripMember{TripID: trip.ID, UserID: newMemberID}
	if err := s.db.Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	trip.Members = append(trip.Members, *member)

	return trip, nil
}
