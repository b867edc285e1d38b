package utils

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"lms/models"
)

// Retention thresholds for the cleanup jobs
const (
	SessionInactiveDays     = 30
	LoginAttemptRetainDays  = 90
	EmailLogRetainDays      = 180
	DeletionGracePeriodDays = 14
)

// Security health check thresholds over the trailing 24 hours
const (
	HealthFailedLoginLimit   = 1000
	HealthSuspectUserLimit   = 100
	HealthFailedEmailLimit   = 50
	HealthSuspectUserMinimum = 3
)

// RetryPolicy retries a failing job a bounded number of times with a
// backoff between attempts
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultBackoff doubles the wait after each failed attempt
func DefaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Minute
}

// Run executes fn until it succeeds or attempts are exhausted. The last
// error is returned for the caller to decide whether it matters.
func (p RetryPolicy) Run(name string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("[MAINTENANCE] %s attempt %d/%d failed: %v", name, attempt, p.MaxAttempts, err)
		if attempt < p.MaxAttempts && p.Backoff != nil {
			time.Sleep(p.Backoff(attempt))
		}
	}
	return err
}

// MaintenanceScheduler runs the periodic housekeeping jobs. The monthly
// payout run is injected so the scheduler does not depend on the payout
// engine directly.
type MaintenanceScheduler struct {
	DB                   *gorm.DB
	Mail                 *EmailService
	CreateMonthlyPayouts func() (created int, processed int, err error)

	cron *cron.Cron
}

func NewMaintenanceScheduler(db *gorm.DB, mail *EmailService, monthlyPayouts func() (int, int, error)) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		DB:                   db,
		Mail:                 mail,
		CreateMonthlyPayouts: monthlyPayouts,
	}
}

// Start registers all jobs and launches the cron loop
func (s *MaintenanceScheduler) Start() {
	s.cron = cron.New()

	s.cron.AddFunc("0 2 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 2, Backoff: DefaultBackoff}
		if err := policy.Run("token cleanup", s.CleanupExpiredTokens); err != nil {
			log.Printf("[MAINTENANCE] token cleanup gave up: %v", err)
		}
	})

	s.cron.AddFunc("0 3 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 3, Backoff: DefaultBackoff}
		if err := policy.Run("scheduled deletions", s.ProcessScheduledDeletions); err != nil {
			log.Printf("[MAINTENANCE] scheduled deletions gave up: %v", err)
		}
	})

	s.cron.AddFunc("30 2 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 2, Backoff: DefaultBackoff}
		if err := policy.Run("session cleanup", s.CleanupInactiveSessions); err != nil {
			log.Printf("[MAINTENANCE] session cleanup gave up: %v", err)
		}
	})

	s.cron.AddFunc("0 4 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 2, Backoff: DefaultBackoff}
		if err := policy.Run("login attempt cleanup", s.CleanupLoginAttempts); err != nil {
			log.Printf("[MAINTENANCE] login attempt cleanup gave up: %v", err)
		}
	})

	s.cron.AddFunc("30 4 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 2, Backoff: DefaultBackoff}
		if err := policy.Run("email log cleanup", s.CleanupEmailLogs); err != nil {
			log.Printf("[MAINTENANCE] email log cleanup gave up: %v", err)
		}
	})

	s.cron.AddFunc("0 9 * * *", func() {
		policy := RetryPolicy{MaxAttempts: 2, Backoff: DefaultBackoff}
		if err := policy.Run("deletion reminders", s.SendDeletionReminders); err != nil {
			log.Printf("[MAINTENANCE] deletion reminders gave up: %v", err)
		}
	})

	s.cron.AddFunc("0 * * * *", func() {
		// Health reporting is advisory. A failure here is logged inside
		// the policy and otherwise ignored.
		policy := RetryPolicy{MaxAttempts: 1}
		policy.Run("security health check", s.SecurityHealthCheck)
	})

	s.cron.AddFunc("0 1 1 * *", func() {
		if s.CreateMonthlyPayouts == nil {
			return
		}
		created, processed, err := s.CreateMonthlyPayouts()
		if err != nil {
			log.Printf("[MAINTENANCE] monthly payout run failed: %v", err)
			return
		}
		log.Printf("[MAINTENANCE] monthly payout run: %d created, %d processed", created, processed)
	})

	s.cron.Start()
	log.Println("[MAINTENANCE] scheduler started")
}

// Stop halts the cron loop
func (s *MaintenanceScheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// CleanupExpiredTokens purges dead token rows of every kind in one
// transaction, so a partial failure never leaves the tables half-cleaned
func (s *MaintenanceScheduler) CleanupExpiredTokens() error {
	now := time.Now()
	var total int64

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		deletes := []*gorm.DB{
			tx.Unscoped().Where("expires_at < ?", now).Delete(&models.EmailVerificationToken{}),
			tx.Unscoped().Where("is_used = ?", true).Delete(&models.EmailVerificationToken{}),
			tx.Unscoped().Where("expires_at < ?", now).Delete(&models.PasswordResetToken{}),
			tx.Unscoped().Where("is_used = ?", true).Delete(&models.PasswordResetToken{}),
			tx.Unscoped().Where("expires_at < ?", now).Delete(&models.RefreshToken{}),
			tx.Unscoped().Where("is_blacklisted = ?", true).Delete(&models.RefreshToken{}),
		}
		for _, d := range deletes {
			if d.Error != nil {
				return d.Error
			}
			total += d.RowsAffected
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[MAINTENANCE] token cleanup removed %d rows", total)
	return nil
}

// ProcessScheduledDeletions permanently removes accounts whose grace period
// has elapsed
func (s *MaintenanceScheduler) ProcessScheduledDeletions() error {
	var users []models.User
	err := s.DB.Where("is_deletion_pending = ? AND deletion_scheduled_for <= ?", true, time.Now()).
		Find(&users).Error
	if err != nil {
		return err
	}

	for i := range users {
		user := users[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.UserSession{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.EmailVerificationToken{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(&models.User{}, user.ID).Error
		})
		if err != nil {
			log.Printf("[MAINTENANCE] could not delete user %d: %v", user.ID, err)
			return err
		}

		go s.Mail.SendAccountDeletedEmail(user.Email, user.FullName)
		log.Printf("[MAINTENANCE] deleted account %d per user request", user.ID)
	}
	return nil
}

// CleanupInactiveSessions drops sessions idle past the retention window
func (s *MaintenanceScheduler) CleanupInactiveSessions() error {
	cutoff := time.Now().AddDate(0, 0, -SessionInactiveDays)
	result := s.DB.Unscoped().Where("last_activity < ?", cutoff).Delete(&models.UserSession{})
	if result.Error != nil {
		return result.Error
	}
	log.Printf("[MAINTENANCE] session cleanup removed %d rows", result.RowsAffected)
	return nil
}

// CleanupLoginAttempts drops audit rows past the retention window
func (s *MaintenanceScheduler) CleanupLoginAttempts() error {
	cutoff := time.Now().AddDate(0, 0, -LoginAttemptRetainDays)
	result := s.DB.Unscoped().Where("created_at < ?", cutoff).Delete(&models.LoginAttempt{})
	if result.Error != nil {
		return result.Error
	}
	log.Printf("[MAINTENANCE] login attempt cleanup removed %d rows", result.RowsAffected)
	return nil
}

// CleanupEmailLogs drops email logs past the retention window
func (s *MaintenanceScheduler) CleanupEmailLogs() error {
	cutoff := time.Now().AddDate(0, 0, -EmailLogRetainDays)
	result := s.DB.Unscoped().Where("created_at < ?", cutoff).Delete(&models.EmailLog{})
	if result.Error != nil {
		return result.Error
	}
	log.Printf("[MAINTENANCE] email log cleanup removed %d rows", result.RowsAffected)
	return nil
}

// SendDeletionReminders notifies users whose account deletion lands in
// exactly 7 days or exactly 1 day. Running once per day keeps "exactly"
// well defined.
func (s *MaintenanceScheduler) SendDeletionReminders() error {
	for _, daysLeft := range []int{7, 1} {
		dayStart := time.Now().AddDate(0, 0, daysLeft).Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)

		var users []models.User
		err := s.DB.Where("is_deletion_pending = ? AND deletion_scheduled_for >= ? AND deletion_scheduled_for < ?",
			true, dayStart, dayEnd).Find(&users).Error
		if err != nil {
			return err
		}

		for i := range users {
			user := users[i]
			if user.DeletionScheduledFor == nil {
				continue
			}
			if err := s.Mail.SendDeletionReminderEmail(&user, daysLeft, *user.DeletionScheduledFor); err != nil {
				log.Printf("[MAINTENANCE] reminder email failed for user %d: %v", user.ID, err)
			}
		}
	}
	return nil
}

// SecurityHealthCheck scans the last 24 hours for abuse patterns and logs
// warnings when thresholds are crossed
func (s *MaintenanceScheduler) SecurityHealthCheck() error {
	since := time.Now().Add(-24 * time.Hour)

	var failedLogins int64
	if err := s.DB.Model(&models.LoginAttempt{}).
		Where("success = ? AND created_at > ?", false, since).
		Count(&failedLogins).Error; err != nil {
		return err
	}
	if failedLogins > HealthFailedLoginLimit {
		log.Printf("[HEALTH] WARNING: %d failed login attempts in the last 24h", failedLogins)
	}

	var suspectUsers int64
	if err := s.DB.Model(&models.LoginAttempt{}).
		Where("success = ? AND created_at > ? AND user_id IS NOT NULL", false, since).
		Group("user_id").
		Having("COUNT(*) >= ?", HealthSuspectUserMinimum).
		Count(&suspectUsers).Error; err != nil {
		return err
	}
	if suspectUsers > HealthSuspectUserLimit {
		log.Printf("[HEALTH] WARNING: %d users with repeated failed logins in the last 24h", suspectUsers)
	}

	var failedEmails int64
	if err := s.DB.Model(&models.EmailLog{}).
		Where("success = ? AND created_at > ?", false, since).
		Count(&failedEmails).Error; err != nil {
		return err
	}
	if failedEmails > HealthFailedEmailLimit {
		log.Printf("[HEALTH] WARNING: %d failed email deliveries in the last 24h", failedEmails)
	}

	return nil
}
