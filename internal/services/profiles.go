package services

import (
	"errors"
	"fmt"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/identity"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ProfileUpdateInput struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

type ProfileService interface {
	GetOrCreateProfile(db *gorm.DB, claims *identity.Claims) (*models.Profile, error)
	UpdateProfile(db *gorm.DB, callerID uuid.UUID, input ProfileUpdateInput) (*models.Profile, error)
	ListProfiles(db *gorm.DB) ([]models.Profile, error)
}

type ProfileServiceImpl struct{}

func NewProfileService() *ProfileServiceImpl {
	return &ProfileServiceImpl{}
}

// GetOrCreateProfile materializes the profile row lazily on first
// authenticated fetch. The primary-key constraint makes this idempotent
// under concurrent first-fetches: the losing insert falls back to a re-read.
func (s *ProfileServiceImpl) GetOrCreateProfile(db *gorm.DB, claims *identity.Claims) (*models.Profile, error) {
	var profile models.Profile
	err := db.First(&profile, "id = ?", claims.UserID).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile = models.Profile{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     models.RoleUser,
	}
	if err := db.Create(&profile).Error; err != nil {
		// A concurrent first-fetch may have won the insert.
		var existing models.Profile
		if readErr := db.First(&existing, "id = ?", claims.UserID).Error; readErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return &profile, nil
}

func (s *ProfileServiceImpl) UpdateProfile(db *gorm.DB, callerID uuid.UUID, input ProfileUpdateInput) (*models.Profile, error) {
	var profile models.Profile
	if err := db.First(&profile, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	updates := map[string]interface{}{}
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}

	if len(updates) > 0 {
		if err := db.Model(&profile).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	return &profile, nil
}

// ListProfiles is used by the scheduled jobs to enumerate known users.
func (s *ProfileServiceImpl) ListProfiles(db *gorm.DB) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := db.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
