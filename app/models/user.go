package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User carries the account identity plus the denormalized subscription
// projection used for fast client reads. The projection fields are written
// only by the subscription synchronizer, in the same transaction as the
// subscriber record, so the two can never be observed out of step.
type User struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email         string `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password      string `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role          string `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status        string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	APITokenHash  string `gorm:"type:varchar(64);index" json:"-"`

	// Subscription projection (see Subscriber).
	HasActiveSubscription bool   `gorm:"default:false;index" json:"has_active_subscription"`
	SubscriptionStatus    string `gorm:"type:varchar(32);default:'inactive'" json:"subscription_status"`
	SubscriptionTier      string `gorm:"type:varchar(32);default:''" json:"subscription_tier"`

	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:               username,
		Email:              email,
		Password:           pw,
		Role:               ROLE_USER,
		Status:             STATUS_ACTIVE,
		SubscriptionStatus: SubscriptionStatusInactive,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// GenerateAPIToken creates a random bearer token and returns the plaintext
// token plus its stored hash. Only the hash is persisted.
func GenerateAPIToken() (token string, tokenHash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, HashAPIToken(token), nil
}

// HashAPIToken hashes a plaintext API token for storage and lookup.
func HashAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}
