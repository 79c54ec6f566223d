package auth

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"xscraper/pkg/storage"
)

var accountsHeader = []string{"email", "username", "password"}

// CSVStore keeps accounts in a plain CSV file with the columns
// email,username,password. Row order is the rotation order.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore opens path lazily; a missing file is an empty store.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// ReadAccounts parses an accounts CSV. The header row is required and
// columns are matched by name, so extra columns are ignored.
func ReadAccounts(r io.Reader) ([]*Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts header: %w", err)
	}
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{"email", "password"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("accounts file is missing the %q column", col)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var accounts []*Account
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read accounts: %w", err)
		}
		accounts = append(accounts, &Account{
			Email:    field(row, "email"),
			Username: field(row, "username"),
			Password: field(row, "password"),
		})
	}
	return accounts, nil
}

func (c *CSVStore) load() ([]*Account, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ReadAccounts(f)
}

func (c *CSVStore) save(accounts []*Account) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(accountsHeader); err != nil {
		return err
	}
	for _, a := range accounts {
		if err := w.Write([]string{a.Email, a.Username, a.Password}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return storage.WriteFileAtomic(c.path, buf.Bytes(), 0600)
}

func (c *CSVStore) Store(account *Account) error {
	if account == nil || account.Email == "" {
		return ErrInvalidCredentials
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, a := range accounts {
		if strings.EqualFold(a.Email, account.Email) {
			accounts[i] = account
			replaced = true
		}
	}
	if !replaced {
		accounts = append(accounts, account)
	}
	return c.save(accounts)
}

func (c *CSVStore) Retrieve(email string) (*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.load()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

func (c *CSVStore) List() ([]*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *CSVStore) Delete(email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.load()
	if err != nil {
		return err
	}
	kept := accounts[:0]
	for _, a := range accounts {
		if !strings.EqualFold(a.Email, email) {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(accounts) {
		return ErrCredentialsNotFound
	}
	return c.save(kept)
}

func (c *CSVStore) Exists(email string) bool {
	_, err := c.Retrieve(email)
	return err == nil
}
