package utils

import (
	"errors"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lms/config"
	"lms/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.EmailVerificationToken{},
		&models.PasswordResetToken{},
		&models.RefreshToken{},
		&models.LoginAttempt{},
		&models.UserSession{},
		&models.EmailLog{},
		&models.InstructorPayout{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	for _, model := range []interface{}{
		&models.RefreshToken{}, &models.EmailVerificationToken{}, &models.PasswordResetToken{},
		&models.LoginAttempt{}, &models.UserSession{}, &models.EmailLog{},
		&models.InstructorPayout{}, &models.User{},
	} {
		db.Unscoped().Where("1 = 1").Delete(model)
	}

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{
			JWTKey:             "test-secret",
			SaltRound:          4,
			AccessTokenMinutes: 15,
			RefreshTokenDays:   7,
			EmailSender:        "noreply@example.com",
			FrontendURL:        "http://localhost:3000",
		}
	}
	return db
}

type recordingTransport struct {
	mu    sync.Mutex
	sends []string
	fail  bool
}

func (r *recordingTransport) Send(toEmail, toName, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, subject)
	if r.fail {
		return errSendFailed
	}
	return nil
}

var errSendFailed = errors.New("transport unavailable")

func testUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		FullName: "Test User",
		Email:    email,
		Password: "hashed",
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}
