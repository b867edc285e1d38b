package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lms/config"
	"lms/gateways"
	"lms/models"
	"lms/utils"
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
		&models.Course{},
		&models.CourseEnrollment{},
		&models.CourseProgress{},
		&models.Payment{},
		&models.PaymentRefund{},
		&models.InstructorPayout{},
		&models.InstructorBankAccount{},
		&models.EmailLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cleanupTables(t, db)
	return db
}

func cleanupTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, model := range []interface{}{
		&models.PaymentRefund{}, &models.Payment{}, &models.CourseProgress{},
		&models.CourseEnrollment{}, &models.Course{}, &models.InstructorPayout{},
		&models.InstructorBankAccount{}, &models.EmailLog{}, &models.User{},
	} {
		db.Unscoped().Where("1 = 1").Delete(model)
	}
}

// fakeTransport records sends instead of talking to a provider
type sentEmail struct {
	to      string
	subject string
}

type fakeTransport struct {
	mu    sync.Mutex
	sends []sentEmail
}

func (f *fakeTransport) Send(toEmail, toName, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentEmail{to: toEmail, subject: subject})
	return nil
}

// recipientsOf lists who received emails with the given subject
func (f *fakeTransport) recipientsOf(subject string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sends {
		if s.subject == subject {
			out = append(out, s.to)
		}
	}
	return out
}

func testMailer(db *gorm.DB) *utils.EmailService {
	mailer, _ := recordingMailer(db)
	return mailer
}

func recordingMailer(db *gorm.DB) (*utils.EmailService, *fakeTransport) {
	cfg := &config.Config{EmailSender: "noreply@example.com", FrontendURL: "http://localhost:3000"}
	transport := &fakeTransport{}
	return utils.NewEmailService(cfg, db, transport), transport
}

// fakeGateway lets tests script gateway outcomes
type fakeGateway struct {
	name          string
	refundOK      bool
	transferOK    bool
	refundCalls   int
	transferCalls int
	failMessage   string
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) InitiateRefund(payment *models.Payment, amount float64, reason string) (*gateways.RefundResult, error) {
	g.refundCalls++
	if !g.refundOK {
		return &gateways.RefundResult{Success: false, Message: g.failMessage}, nil
	}
	return &gateways.RefundResult{Success: true, Reference: "gw-refund-1", RawResponse: []byte(`{"ok":true}`)}, nil
}

func (g *fakeGateway) InitiateTransfer(account *models.InstructorBankAccount, amount float64, narration string) (*gateways.TransferResult, error) {
	g.transferCalls++
	if !g.transferOK {
		return &gateways.TransferResult{Success: false, Message: g.failMessage}, nil
	}
	return &gateways.TransferResult{Success: true, Reference: "gw-transfer-1", RawResponse: []byte(`{"ok":true}`)}, nil
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
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

func createCompletedPayment(t *testing.T, db *gorm.DB, userID, courseID uint, amount float64, paidAt time.Time) *models.Payment {
	t.Helper()
	payment := models.Payment{
		Reference:        "PAY-" + uuid.NewString(),
		GatewayName:      "paystack",
		GatewayReference: "gw-ref-1",
		UserID:           userID,
		CourseID:         courseID,
		Amount:           amount,
		Currency:         "NGN",
		Status:           models.PaymentCompleted,
		PaidAt:           &paidAt,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	return &payment
}
