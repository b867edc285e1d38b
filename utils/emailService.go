package utils

import (
	"fmt"
	"log"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gorm.io/gorm"

	"lms/config"
	"lms/models"
)

// Transport delivers a rendered email. The production implementation talks
// to SendGrid; tests inject a fake.
type Transport interface {
	Send(toEmail, toName, subject, htmlBody string) error
}

// SendgridTransport sends through the SendGrid v3 API
type SendgridTransport struct {
	apiKey string
	sender string
}

func NewSendgridTransport(cfg *config.Config) *SendgridTransport {
	return &SendgridTransport{apiKey: cfg.SendgridApiKey, sender: cfg.EmailSender}
}

func (t *SendgridTransport) Send(toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail("LMS", t.sender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(t.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// EmailService renders and delivers transactional email. Every send attempt,
// successful or not, is written to the email log.
type EmailService struct {
	cfg       *config.Config
	db        *gorm.DB
	transport Transport
}

func NewEmailService(cfg *config.Config, db *gorm.DB, transport Transport) *EmailService {
	return &EmailService{cfg: cfg, db: db, transport: transport}
}

func (s *EmailService) send(userID *uint, emailType, toEmail, toName, subject, body string) error {
	err := s.transport.Send(toEmail, toName, subject, wrapTemplate(subject, body))

	logEntry := models.EmailLog{
		UserID:         userID,
		EmailType:      emailType,
		RecipientEmail: toEmail,
		Subject:        subject,
		Success:        err == nil,
	}
	if err != nil {
		logEntry.ErrorMessage = err.Error()
		log.Printf("Failed to send %s email to %s: %v", emailType, toEmail, err)
	}
	if dbErr := s.db.Create(&logEntry).Error; dbErr != nil {
		log.Printf("Failed to record email log: %v", dbErr)
	}

	return err
}

// wrapTemplate puts the message body inside the shared layout
func wrapTemplate(title, body string) string {
	return fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
		<div style="max-width: 600px; margin: auto; background: #ffffff; padding: 30px; border-radius: 8px;">
			<h2 style="color: #333333;">%s</h2>
			%s
			<hr style="border: none; border-top: 1px solid #eeeeee; margin-top: 30px;">
			<p style="color: #999999; font-size: 12px;">If you did not expect this email, you can safely ignore it.</p>
		</div>
	</body>
	</html>`, title, body)
}

func (s *EmailService) SendVerificationEmail(user *models.User, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.FrontendURL, token)
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Welcome aboard. Please confirm your email address to activate your account.</p>
		<p><a href="%s" style="background: #4CAF50; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Verify Email</a></p>
		<p>This link expires in 24 hours.</p>`, user.FullName, link)
	return s.send(&user.ID, models.EmailVerification, user.Email, user.FullName, "Verify Your Email Address", body)
}

func (s *EmailService) SendPasswordResetEmail(user *models.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.FrontendURL, token)
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received a request to reset your password.</p>
		<p><a href="%s" style="background: #2196F3; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
		<p>This link expires in 1 hour. If you did not request a reset, no action is needed.</p>`, user.FullName, link)
	return s.send(&user.ID, models.EmailPasswordReset, user.Email, user.FullName, "Reset Your Password", body)
}

func (s *EmailService) SendLoginAlertEmail(user *models.User, ip, location string, when time.Time) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>A new login to your account was detected.</p>
		<ul>
			<li>Time: %s</li>
			<li>IP address: %s</li>
			<li>Location: %s</li>
		</ul>
		<p>If this was you, no action is needed. Otherwise, change your password immediately.</p>`,
		user.FullName, when.Format("2006-01-02 15:04:05 MST"), ip, location)
	return s.send(&user.ID, models.EmailLoginAlert, user.Email, user.FullName, "New Login To Your Account", body)
}

func (s *EmailService) SendNewDeviceEmail(user *models.User, ip, location, userAgent string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your account was accessed from a device we have not seen before.</p>
		<ul>
			<li>IP address: %s</li>
			<li>Location: %s</li>
			<li>Device: %s</li>
		</ul>
		<p>If this was not you, change your password and review your active sessions.</p>`,
		user.FullName, ip, location, userAgent)
	return s.send(&user.ID, models.EmailNewDevice, user.Email, user.FullName, "New Device Login Detected", body)
}

func (s *EmailService) SendPasswordChangedEmail(user *models.User) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your password was changed and all other sessions have been signed out.</p>
		<p>If you did not make this change, reset your password immediately.</p>`, user.FullName)
	return s.send(&user.ID, models.EmailPasswordChanged, user.Email, user.FullName, "Your Password Was Changed", body)
}

func (s *EmailService) SendAccountLockedEmail(user *models.User, until time.Time) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your account has been temporarily locked after too many failed login attempts.</p>
		<p>You can try again after %s, or reset your password to unlock immediately.</p>`,
		user.FullName, until.Format("15:04 MST"))
	return s.send(&user.ID, models.EmailAccountLocked, user.Email, user.FullName, "Account Temporarily Locked", body)
}

func (s *EmailService) SendDeletionRequestedEmail(user *models.User, scheduledFor time.Time) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received your request to delete your account. It is scheduled for permanent deletion on <strong>%s</strong>.</p>
		<p>You can cancel any time before then by logging in and cancelling the request.</p>`,
		user.FullName, scheduledFor.Format("January 2, 2006"))
	return s.send(&user.ID, models.EmailDeletionRequested, user.Email, user.FullName, "Account Deletion Requested", body)
}

func (s *EmailService) SendDeletionCancelledEmail(user *models.User) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your account deletion request has been cancelled. Your account remains active.</p>`, user.FullName)
	return s.send(&user.ID, models.EmailDeletionCancelled, user.Email, user.FullName, "Account Deletion Cancelled", body)
}

func (s *EmailService) SendDeletionReminderEmail(user *models.User, daysLeft int, scheduledFor time.Time) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your account is scheduled for deletion in <strong>%d day(s)</strong>, on %s.</p>
		<p>Log in and cancel the request if you want to keep your account.</p>`,
		user.FullName, daysLeft, scheduledFor.Format("January 2, 2006"))
	return s.send(&user.ID, models.EmailDeletionReminder, user.Email, user.FullName,
		fmt.Sprintf("Reminder: Account Deletion In %d Day(s)", daysLeft), body)
}

func (s *EmailService) SendAccountDeletedEmail(email, fullName string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your account and associated data have been permanently deleted.</p>
		<p>We are sorry to see you go.</p>`, fullName)
	return s.send(nil, models.EmailAccountDeleted, email, fullName, "Your Account Has Been Deleted", body)
}

func (s *EmailService) SendRefundRequestedEmail(user *models.User, refund *models.PaymentRefund) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received your refund request <strong>%s</strong> for %.2f NGN.</p>
		<p>You will be notified when it is processed.</p>`, user.FullName, refund.Reference, refund.Amount)
	return s.send(&user.ID, models.EmailRefundRequested, user.Email, user.FullName, "Refund Request Received", body)
}

// SendRefundReviewAlert notifies every platform manager that a refund is
// waiting for manual review. The requesting student only gets the regular
// request-received email.
func (s *EmailService) SendRefundReviewAlert(refund *models.PaymentRefund) error {
	var admins []models.User
	if err := s.db.Where("role = ? AND is_active = ?", models.RoleSuperAdmin, true).Find(&admins).Error; err != nil {
		log.Printf("Failed to load reviewers for refund %s: %v", refund.Reference, err)
		return err
	}

	body := fmt.Sprintf(`
		<p>Refund request <strong>%s</strong> for %.2f NGN exceeds the auto-processing limit and is waiting for manual review.</p>
		<p>Please review it from the admin dashboard.</p>`, refund.Reference, refund.Amount)

	var lastErr error
	for i := range admins {
		admin := &admins[i]
		if err := s.send(&admin.ID, models.EmailRefundReview, admin.Email, admin.FullName, "Refund Awaiting Review", body); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (s *EmailService) SendRefundCompletedEmail(user *models.User, refund *models.PaymentRefund) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your refund <strong>%s</strong> for %.2f NGN has been processed.</p>
		<p>Depending on your bank, it can take 5 to 10 business days to reflect.</p>`,
		user.FullName, refund.Reference, refund.Amount)
	return s.send(&user.ID, models.EmailRefundCompleted, user.Email, user.FullName, "Your Refund Has Been Processed", body)
}

func (s *EmailService) SendPayoutEmail(user *models.User, payout *models.InstructorPayout) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your payout of <strong>%.2f NGN</strong> for the period %s to %s has been sent to your bank account.</p>`,
		user.FullName, payout.NetPayout,
		payout.PeriodStart.Format("Jan 2, 2006"), payout.PeriodEnd.Format("Jan 2, 2006"))
	return s.send(&user.ID, models.EmailInstructorPayout, user.Email, user.FullName, "Your Payout Is On The Way", body)
}

func (s *EmailService) SendBankAccountUpdatedEmail(user *models.User, bankName, maskedNumber string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your payout bank account was updated to %s (%s).</p>
		<p>If you did not make this change, contact support immediately.</p>`,
		user.FullName, bankName, maskedNumber)
	return s.send(&user.ID, models.EmailBankAccountUpdated, user.Email, user.FullName, "Bank Account Updated", body)
}
