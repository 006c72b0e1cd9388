package notify

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"FarmMonitorAPI/internal/models"
)

var ErrInvalidSettings = errors.New("invalid notification settings")

// Settings holds the global notification switches. A disabled channel is
// skipped at delivery; alerts keep the channel set of their rule.
type Settings struct {
	mu      sync.RWMutex
	current models.NotificationSettings
}

func NewSettings(initial models.NotificationSettings) *Settings {
	return &Settings{current: initial}
}

func (s *Settings) Get() models.NotificationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Settings) Update(next models.NotificationSettings) error {
	if err := ValidateSettings(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

func ValidateSettings(s models.NotificationSettings) error {
	if s.Email.Enabled {
		if s.Email.Address == "" {
			return fmt.Errorf("%w: email address is required when email is enabled", ErrInvalidSettings)
		}
		if _, err := mail.ParseAddress(s.Email.Address); err != nil {
			return fmt.Errorf("%w: email address %q: %v", ErrInvalidSettings, s.Email.Address, err)
		}
	}
	if s.SMS.Enabled {
		n := strings.TrimPrefix(strings.ReplaceAll(s.SMS.Number, " ", ""), "+")
		if len(n) < 6 || strings.Trim(n, "0123456789-") != "" {
			return fmt.Errorf("%w: sms number %q", ErrInvalidSettings, s.SMS.Number)
		}
	}
	return nil
}
