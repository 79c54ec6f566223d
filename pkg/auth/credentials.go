package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Account is one login for the target site.
type Account struct {
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks the fields every login step needs.
func (a *Account) Validate() error {
	if a == nil {
		return ErrInvalidCredentials
	}
	if strings.TrimSpace(a.Email) == "" {
		return errors.New("email is required")
	}
	if a.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves or replaces the account keyed by email
	Store(account *Account) error

	// Retrieve gets the account for an email
	Retrieve(email string) (*Account, error)

	// List returns all stored accounts in rotation order
	List() ([]*Account, error)

	// Delete removes the account for an email
	Delete(email string) error

	// Exists checks if an account is stored for an email
	Exists(email string) bool
}

// Store sources accepted by NewManager.
const (
	SourceFile      = "file"
	SourceKeyring   = "keyring"
	SourceEncrypted = "encrypted"
	SourceEnv       = "env"
)

// Manager reads and writes accounts through one store.
type Manager struct {
	store CredentialStore
}

// NewManager opens the store named by source. file is the accounts CSV
// used by the file source.
func NewManager(source, file string) (*Manager, error) {
	switch source {
	case SourceFile, "":
		return &Manager{store: NewCSVStore(file)}, nil
	case SourceKeyring:
		ks, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		return &Manager{store: ks}, nil
	case SourceEncrypted:
		configDir, err := getConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		es, err := NewEncryptedFileStore(filepath.Join(configDir, "accounts.enc"))
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted store: %w", err)
		}
		return &Manager{store: es}, nil
	case SourceEnv:
		return &Manager{store: NewEnvironmentStore()}, nil
	}
	return nil, fmt.Errorf("unknown account source %q", source)
}

// NewManagerWithStore wraps an existing store.
func NewManagerWithStore(store CredentialStore) *Manager {
	return &Manager{store: store}
}

// Store validates and saves an account.
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.LastModified = time.Now()
	if err := m.store.Store(account); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}
	return nil
}

// Retrieve gets an account by email.
func (m *Manager) Retrieve(email string) (*Account, error) {
	account, err := m.store.Retrieve(email)
	if err != nil {
		return nil, fmt.Errorf("account not found: %s: %w", email, err)
	}
	return account, nil
}

// List returns every usable account, skipping entries missing an email or password.
func (m *Manager) List() ([]*Account, error) {
	accounts, err := m.store.List()
	if err != nil {
		return nil, err
	}
	result := accounts[:0]
	for _, a := range accounts {
		if a.Validate() == nil {
			result = append(result, a)
		}
	}
	return result, nil
}

// Delete removes an account by email.
func (m *Manager) Delete(email string) error {
	if err := m.store.Delete(email); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// Import copies every account from src into the manager's store.
func (m *Manager) Import(src CredentialStore) (int, error) {
	accounts, err := src.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range accounts {
		if err := m.Store(a); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "xscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "xscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "xscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "xscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// SanitizeAccount returns a copy safe to print or log.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	return &Account{
		Email:        MaskEmail(account.Email),
		Username:     account.Username,
		Password:     maskString(account.Password),
		LastModified: account.LastModified,
	}
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskString(email)
	}
	return email[:1] + "***" + email[at:]
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
