package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/models"
)

const backupCodeCount = 10

// GenerateTwoFactorSecret creates a new TOTP secret and the provisioning URI
// the client renders as a QR code.
func GenerateTwoFactorSecret(email string) (secret string, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "LMS",
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTPCode checks a 6-digit code against the secret, allowing one
// period of clock skew in either direction.
func VerifyTOTPCode(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

// GenerateBackupCodes returns a fresh batch of one-time recovery codes in
// plain text along with their hashes for storage. Only the hashes are
// persisted; the plain codes are shown to the user exactly once.
func GenerateBackupCodes() (plain []string, hashed datatypes.JSON, err error) {
	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, err
		}
		code := strings.ToUpper(hex.EncodeToString(buf))
		codes = append(codes, code)
		hashes = append(hashes, hashBackupCode(code))
	}

	raw, err := json.Marshal(hashes)
	if err != nil {
		return nil, nil, err
	}
	return codes, datatypes.JSON(raw), nil
}

// VerifyBackupCode consumes a recovery code. A matching hash is removed from
// the stored list so the code cannot be replayed.
func VerifyBackupCode(db *gorm.DB, user *models.User, code string) (bool, error) {
	if len(user.BackupCodes) == 0 {
		return false, nil
	}

	var hashes []string
	if err := json.Unmarshal(user.BackupCodes, &hashes); err != nil {
		return false, err
	}

	target := hashBackupCode(strings.ToUpper(strings.TrimSpace(code)))
	for i, h := range hashes {
		if h == target {
			remaining := append(hashes[:i], hashes[i+1:]...)
			raw, err := json.Marshal(remaining)
			if err != nil {
				return false, err
			}
			user.BackupCodes = datatypes.JSON(raw)
			if err := db.Model(user).Update("backup_codes", user.BackupCodes).Error; err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// RemainingBackupCodes counts the unused recovery codes
func RemainingBackupCodes(user *models.User) int {
	if len(user.BackupCodes) == 0 {
		return 0
	}
	var hashes []string
	if err := json.Unmarshal(user.BackupCodes, &hashes); err != nil {
		return 0
	}
	return len(hashes)
}

func hashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return fmt.Sprintf("%x", sum)
}
