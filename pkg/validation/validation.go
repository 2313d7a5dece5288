package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
)

const (
	MinWorkers = 1
	MaxWorkers = 50

	MaxProbeRequests = 1000
)

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateRequestCount(n int) error {
	if n < 1 || n > MaxProbeRequests {
		return fmt.Errorf("request count must be between 1 and %d, got %d", MaxProbeRequests, n)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateBaseURL accepts absolute http or https URLs with a host.
func ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

func ValidateBackend(name string, known []string) error {
	for _, k := range known {
		if name == k {
			return nil
		}
	}
	return fmt.Errorf("unknown backend: %s (must be one of: %v)", name, known)
}
