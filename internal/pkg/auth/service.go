package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/cache"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/config"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	codeTTL         = 10 * time.Minute
	verifiedTTL     = time.Hour
	maxCodeAttempts = 5
)

// Mailer sends a transactional email.
type Mailer interface {
	Send(to, subject, body string) error
}

// CodeStore holds one-time verification state. The production store is Redis.
type CodeStore interface {
	Set(key, value string, ttl time.Duration) error
	Get(key string) (string, error)
	Incr(key string, ttl time.Duration) (int64, error)
	Delete(key string) error
	IsMiss(err error) bool
}

type redisCodeStore struct{}

// NewRedisCodeStore returns a CodeStore over the shared cache client.
func NewRedisCodeStore() CodeStore {
	return redisCodeStore{}
}

func (redisCodeStore) Set(key, value string, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}

func (redisCodeStore) Get(key string) (string, error) {
	return cache.Get(key)
}

func (redisCodeStore) Incr(key string, ttl time.Duration) (int64, error) {
	n, err := cache.Incr(key)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = cache.GetClient().Expire(context.Background(), key, ttl).Err()
	}
	return n, nil
}

func (redisCodeStore) Delete(key string) error {
	return cache.Delete(key)
}

func (redisCodeStore) IsMiss(err error) bool {
	return cache.IsNil(err)
}

// Service implements email verification and account creation.
type Service struct {
	db           *gorm.DB
	codes        CodeStore
	mailer       Mailer
	requestLimit config.RateLimitRule
}

// NewService constructs the auth service with injected dependencies. The
// request limit caps code requests per email per window; a zero MaxCount
// disables it.
func NewService(db *gorm.DB, codes CodeStore, mailer Mailer, requestLimit config.RateLimitRule) *Service {
	return &Service{db: db, codes: codes, mailer: mailer, requestLimit: requestLimit}
}

// RequestVerificationCode generates a six-digit one-time code for the email,
// stores it with a TTL and sends it out. Requests count against a per-email
// window; the limiter fails open on store errors.
func (s *Service) RequestVerificationCode(ctx context.Context, email string) error {
	_ = ctx
	addr := normalizeEmail(email)
	if addr == "" {
		return ErrUnauthenticated
	}

	if s.requestLimit.MaxCount > 0 {
		n, err := s.codes.Incr(requestsKey(addr), s.requestLimit.Window)
		if err != nil {
			log.Warnf("code request counter failed for %s, failing open: %v", addr, err)
		} else if n > int64(s.requestLimit.MaxCount) {
			return ErrTooManyAttempts
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.codes.Set(codeKey(addr), code, codeTTL); err != nil {
		return err
	}
	_ = s.codes.Delete(attemptsKey(addr))

	subject := "Your Assist App verification code"
	body := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		code, int(codeTTL.Minutes()))
	if err := s.mailer.Send(addr, subject, body); err != nil {
		log.Errorf("failed to send verification code to %s: %v", addr, err)
		return err
	}
	return nil
}

// VerifyCode checks and consumes a one-time code, leaving a short-lived
// verified marker that Register requires.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {
	_ = ctx
	addr := normalizeEmail(email)
	stored, err := s.codes.Get(codeKey(addr))
	if err != nil {
		if s.codes.IsMiss(err) {
			return ErrCodeExpired
		}
		return err
	}

	attempts, err := s.codes.Incr(attemptsKey(addr), codeTTL)
	if err == nil && attempts > maxCodeAttempts {
		_ = s.codes.Delete(codeKey(addr))
		return ErrTooManyAttempts
	}

	if strings.TrimSpace(code) != stored {
		return ErrInvalidCode
	}

	_ = s.codes.Delete(codeKey(addr))
	_ = s.codes.Delete(attemptsKey(addr))
	return s.codes.Set(verifiedKey(addr), "1", verifiedTTL)
}

// RegisterResult carries the created account and its plaintext API token,
// which is shown exactly once.
type RegisterResult struct {
	User     *models.User
	APIToken string
}

// Register creates an account for a verified email: bcrypt password hash,
// API token, an inactive subscriber row and an audit entry, atomically.
func (s *Service) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	_ = ctx
	addr := normalizeEmail(email)

	if _, err := s.codes.Get(verifiedKey(addr)); err != nil {
		if s.codes.IsMiss(err) {
			return nil, ErrEmailNotVerified
		}
		return nil, err
	}

	user, err := models.CreateUser(name, addr, password)
	if err != nil {
		return nil, err
	}
	user.EmailVerified = true

	token, tokenHash, err := models.GenerateAPIToken()
	if err != nil {
		return nil, err
	}
	user.APITokenHash = tokenHash

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("email = ?", addr).First(&existing).Error; err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Subscriber{
			UserID: user.ID,
			Status: models.SubscriptionStatusInactive,
			Tier:   models.TierMonthly,
		}).Error; err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]string{"email": addr})
		return tx.Create(&models.AuditLog{
			ActorUserID:  user.ID,
			TargetUserID: user.ID,
			Action:       models.AuditActionAccountCreated,
			Source:       models.AuditSourceAuth,
			DetailsJSON:  string(details),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	_ = s.codes.Delete(verifiedKey(addr))
	return &RegisterResult{User: user, APIToken: token}, nil
}

// AuthenticateToken resolves a bearer token to its user.
func (s *Service) AuthenticateToken(token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var user models.User
	err := s.db.Where("api_token_hash = ?", models.HashAPIToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Status != models.STATUS_ACTIVE {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func codeKey(email string) string     { return "verify:code:" + email }
func attemptsKey(email string) string { return "verify:attempts:" + email }
func requestsKey(email string) string { return "verify:requests:" + email }
func verifiedKey(email string) string { return "verify:ok:" + email }

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
