package schema

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

type Artwork struct {
	Id uint `gorm:"primaryKey"`

	// Stored in normalized form, see NormalizeCode.
	Code string `gorm:"size:100;not null;uniqueIndex:idx_artworks_code"`
	Name string `gorm:"size:255;not null"`

	Collection     *string `gorm:"size:255"`
	Dimensions     *string `gorm:"size:255"`
	Materials      *string
	Description    *string
	ProductionDate *string `gorm:"size:100"`
	ImageUrl       *string

	// Case folded code and name, maintained by BeforeSave and matched by search.
	SearchText string `gorm:"not null;default:''"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (a *Artwork) BeforeSave(txn *gorm.DB) error {
	a.SearchText = SearchText(a.Code, a.Name)
	return nil
}

type AdminUser struct {
	Id       uint   `gorm:"primaryKey"`
	Email    string `gorm:"size:254;not null;uniqueIndex:idx_admin_users_email"`
	Password []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Empty optional text fields are stored as NULL.
func OptionalText(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// FoldCase applies full unicode case folding, so that "Écume" and "ÉCUME" compare
// equal. The database LOWER function only folds ascii on sqlite.
func FoldCase(value string) string {
	return cases.Fold().String(value)
}

func SearchText(code, name string) string {
	return FoldCase(code) + "\n" + FoldCase(name)
}
