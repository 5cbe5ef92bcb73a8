package schema

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

var (
	ErrArtworkNotFound   = errors.New("Artwork not found")
	ErrAdminUserNotFound = errors.New("admin user not found")

	ErrDbAccessFailed = errors.New("db access failed")
)

func GetArtwork(artworkId uint, db *gorm.DB) (Artwork, error) {
	var artwork Artwork
	result := db.First(&artwork, "id = ?", artworkId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Artwork{}, ErrArtworkNotFound
		}
		slog.Error("sql error retrieving artwork", "artwork_id", artworkId, "error", result.Error)
		return Artwork{}, ErrDbAccessFailed
	}
	return artwork, nil
}

// The code must already be normalized.
func GetArtworkByCode(code string, db *gorm.DB) (Artwork, error) {
	var artwork Artwork
	result := db.Limit(1).Find(&artwork, "code = ?", code)
	if result.Error != nil {
		slog.Error("sql error retrieving artwork by code", "code", code, "error", result.Error)
		return Artwork{}, ErrDbAccessFailed
	}
	if result.RowsAffected != 1 {
		return Artwork{}, ErrArtworkNotFound
	}
	return artwork, nil
}

func GetAdminUser(userId uint, db *gorm.DB) (AdminUser, error) {
	var user AdminUser
	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return AdminUser{}, ErrAdminUserNotFound
		}
		slog.Error("sql error retrieving admin user", "user_id", userId, "error", result.Error)
		return AdminUser{}, ErrDbAccessFailed
	}
	return user, nil
}

func GetAdminUserByEmail(email string, db *gorm.DB) (AdminUser, error) {
	var user AdminUser
	result := db.Limit(1).Find(&user, "email = ?", email)
	if result.Error != nil {
		slog.Error("sql error retrieving admin user by email", "error", result.Error)
		return AdminUser{}, ErrDbAccessFailed
	}
	if result.RowsAffected != 1 {
		return AdminUser{}, fmt.Errorf("%w: no admin with email %v", ErrAdminUserNotFound, email)
	}
	return user, nil
}
