package errs

import (
	"errors"
	"fmt"
)

// Ошибки валидации (400).
var (
	ErrInvalidID     = errors.New("invalid id format")
	ErrNoChanges     = errors.New("no fields to update")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrInvalidBody   = errors.New("invalid body")
	ErrInvalidType   = errors.New("invalid notification type")
	ErrFileType      = errors.New("file type not allowed")
	ErrNoFilename    = errors.New("no filename provided")
	ErrPasswordLong  = errors.New("password must be at most 72 bytes")
)

// Ошибки поиска (404).
var (
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrMunicipalityNotFound = errors.New("municipality not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrAddressNotFound      = errors.New("address not found")
)

// Конфликты (409).
var (
	ErrMunicipalityExists = errors.New("municipality with this name already exists")
	ErrEmailTaken         = errors.New("email already registered")
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrFileTooLarge       = errors.New("file too large")
	ErrGeocoder           = errors.New("geocoding service error")
)

// ErrUpstreamUnavailable — backend-сервис недоступен, не ответил вовремя или цепь разомкнута.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError привязывает ErrUpstreamUnavailable к конкретному сервису и исходной причине.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable, e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}
