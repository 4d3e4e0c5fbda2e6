package user

import (
	"context"
	"errors"

	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMissingUserID      = errors.New("Missing user ID")
	ErrInvalidUserID      = errors.New("Invalid user ID format (must be a valid UUID)")
	ErrUserNotFound       = errors.New("User not found")
	ErrNameRequired       = errors.New("Name is required.")
	ErrNameTaken          = errors.New("Name is already in use.")
	ErrEmailRequired      = errors.New("Email is required.")
	ErrInvalidEmailFormat = errors.New("Invalid email format.")
	ErrEmailTaken         = errors.New("Email already registered")
)

// Service holds DB for profile operations.
type Service struct {
	DB *gorm.DB
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GetProfile returns the caller's account.
func (s *Service) GetProfile(ctx context.Context, who *domain.Identity) (*domain.User, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrMissingUserID
	}
	return s.find(ctx, who.UserID)
}

// UpdateProfile changes the caller's display name and email. Both stay unique across users.
func (s *Service) UpdateProfile(ctx context.Context, who *domain.Identity, in ProfileInput) (*domain.User, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := uuid.Parse(who.UserID); err != nil {
		return nil, ErrInvalidUserID
	}
	name := validation.NormalizeName(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := validation.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmailFormat
	}

	var dup domain.User
	if err := s.DB.WithContext(ctx).Where("name = ? AND user_id != ?", name, who.UserID).First(&dup).Error; err == nil {
		return nil, ErrNameTaken
	}
	if err := s.DB.WithContext(ctx).Where("email = ? AND user_id != ?", email, who.UserID).First(&dup).Error; err == nil {
		return nil, ErrEmailTaken
	}

	result := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", who.UserID).
		Updates(map[string]interface{}{"name": name, "email": email})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.find(ctx, who.UserID)
}

func (s *Service) find(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
