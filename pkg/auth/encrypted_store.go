package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"xscraper/pkg/storage"
)

const (
	vaultVersion    = 2
	vaultSaltLen    = 32
	vaultKeyLen     = 32
	vaultIterations = 100000

	// EnvPassphrase overrides the generated passphrase file.
	EnvPassphrase = "XSCRAPER_PASSPHRASE"
)

// vaultAAD binds the ciphertext to this file format.
var vaultAAD = []byte("xscraper/accounts")

// vaultFile is the on-disk envelope. Only Sealed is secret.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// vault is an opened account file. Accounts keep rotation order.
type vault struct {
	salt     []byte
	accounts []Account
}

func (v *vault) indexOf(email string) int {
	for i := range v.accounts {
		if v.accounts[i].Email == email {
			return i
		}
	}
	return -1
}

// put replaces an existing account in place or appends a new one.
func (v *vault) put(a Account) {
	if i := v.indexOf(a.Email); i >= 0 {
		v.accounts[i] = a
		return
	}
	v.accounts = append(v.accounts, a)
}

func (v *vault) remove(email string) bool {
	i := v.indexOf(email)
	if i < 0 {
		return false
	}
	v.accounts = append(v.accounts[:i], v.accounts[i+1:]...)
	return true
}

// EncryptedFileStore keeps accounts in an AES-GCM sealed JSON file keyed
// with PBKDF2. The rotation order is the order accounts were first stored.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens path with XSCRAPER_PASSPHRASE, or with a
// passphrase generated once and kept next to the account file.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase, err := resolvePassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return NewEncryptedFileStoreWithPassphrase(path, passphrase)
}

// NewEncryptedFileStoreWithPassphrase opens path with an explicit passphrase.
func NewEncryptedFileStoreWithPassphrase(path, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Email == "" {
		return ErrInvalidCredentials
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.open()
	if err != nil {
		return err
	}
	v.put(*account)
	return e.seal(v)
}

func (e *EncryptedFileStore) Retrieve(email string) (*Account, error) {
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.open()
	if err != nil {
		return nil, err
	}
	i := v.indexOf(email)
	if i < 0 {
		return nil, ErrCredentialsNotFound
	}
	account := v.accounts[i]
	return &account, nil
}

// List returns the accounts in the order they were first stored.
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.open()
	if err != nil {
		return nil, err
	}
	out := make([]*Account, len(v.accounts))
	for i := range v.accounts {
		account := v.accounts[i]
		out[i] = &account
	}
	return out, nil
}

// Delete removes an account. The file is removed with the last one.
func (e *EncryptedFileStore) Delete(email string) error {
	if email == "" {
		return ErrInvalidCredentials
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.open()
	if err != nil {
		return err
	}
	if !v.remove(email) {
		return ErrCredentialsNotFound
	}
	if len(v.accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.seal(v)
}

func (e *EncryptedFileStore) Exists(email string) bool {
	_, err := e.Retrieve(email)
	return err == nil
}

// open reads and decrypts the file. A missing file is an empty vault.
func (e *EncryptedFileStore) open() (*vault, error) {
	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return &vault{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.path, err)
	}

	var f vaultFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", e.path, err)
	}
	if f.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported account file version %d", f.Version)
	}
	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(f.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	aead, err := e.cipher(salt)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("account file is truncated")
	}
	plain, err := aead.Open(nil, sealed[:n], sealed[n:], vaultAAD)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt accounts (wrong passphrase?): %w", err)
	}

	v := &vault{salt: salt}
	if err := json.Unmarshal(plain, &v.accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return v, nil
}

// seal encrypts the vault under a fresh nonce and writes it atomically.
func (e *EncryptedFileStore) seal(v *vault) error {
	if v.salt == nil {
		v.salt = make([]byte, vaultSaltLen)
		if _, err := rand.Read(v.salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	plain, err := json.Marshal(v.accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	aead, err := e.cipher(v.salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:  vaultVersion,
		Salt:     base64.StdEncoding.EncodeToString(v.salt),
		Sealed:   base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, plain, vaultAAD)),
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(e.path, content, 0600)
}

func (e *EncryptedFileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(e.passphrase), salt, vaultIterations, vaultKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// resolvePassphrase prefers the environment, then the file at path. When
// neither exists a random passphrase is written to path.
func resolvePassphrase(path string) (string, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return p, nil
	}
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		return string(b), nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	p := base64.RawURLEncoding.EncodeToString(b)
	if err := storage.WriteFileAtomic(path, []byte(p), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return p, nil
}
