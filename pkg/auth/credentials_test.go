package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Email:    "first@example.com",
		Username: "first_handle",
		Password: "hunter2hunter2",
	}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("first@example.com")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Username != account.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, account.Username)
	}

	if err := manager.Store(&Account{Email: "nopass@example.com"}); err == nil {
		t.Error("Account without password should be rejected")
	}

	// invalid rows injected directly are filtered from List
	_ = mockStore.Store(&Account{Email: "broken@example.com"})
	_ = mockStore.Store(&Account{Email: "second@example.com", Password: "pw"})

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 usable accounts, got %d", len(accounts))
	}
	if accounts[0].Email != "first@example.com" || accounts[1].Email != "second@example.com" {
		t.Errorf("Accounts out of order: %s, %s", accounts[0].Email, accounts[1].Email)
	}

	if err := manager.Delete("first@example.com"); err != nil {
		t.Errorf("Failed to delete: %v", err)
	}
	if mockStore.Exists("first@example.com") {
		t.Error("Account should be gone after delete")
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Email: "alice@example.com", Username: "alice", Password: "correct-horse-battery"}
	sanitized := SanitizeAccount(account)

	if sanitized.Password == account.Password {
		t.Error("Password should be masked")
	}
	if sanitized.Email != "a***@example.com" {
		t.Errorf("Unexpected masked email %q", sanitized.Email)
	}
	if SanitizeAccount(nil) != nil {
		t.Error("Nil account should stay nil")
	}
}

func TestCSVStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	content := "\ufeffEmail, Username, Password\n" +
		"a@example.com,alpha,pw1\n" +
		",missing,pw2\n" +
		"b@example.com,,pw3\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewCSVStore(path)
	accounts, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(accounts))
	}

	manager := NewManagerWithStore(store)
	usable, _ := manager.List()
	if len(usable) != 2 || usable[1].Email != "b@example.com" {
		t.Errorf("Expected rows with email and password in order, got %+v", usable)
	}

	if err := manager.Store(&Account{Email: "A@example.com", Username: "renamed", Password: "new"}); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	got, err := store.Retrieve("a@example.com")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if got.Username != "renamed" {
		t.Errorf("Expected update in place, got %+v", got)
	}

	if err := store.Delete("b@example.com"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("b@example.com") {
		t.Error("Deleted account still present")
	}
	if err := store.Delete("b@example.com"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestCSVStoreMissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "none.csv"))
	accounts, err := store.List()
	if err != nil || len(accounts) != 0 {
		t.Errorf("Missing file should be empty, got %v, %v", accounts, err)
	}
}

func TestReadAccountsRequiresColumns(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader("user,pass\nx,y\n"))
	if err == nil {
		t.Error("Expected error for missing email column")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "accounts.enc")

	store, err := NewEncryptedFileStoreWithPassphrase(tempFile, "test_passphrase_123")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := &Account{Email: "enc@example.com", Username: "enc", Password: "encrypted_password"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("enc@example.com")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Password != account.Password {
		t.Errorf("Password mismatch after encryption/decryption")
	}

	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(fileContent, []byte("encrypted_password")) {
		t.Error("File contains plaintext password")
	}

	wrong, _ := NewEncryptedFileStoreWithPassphrase(tempFile, "wrong")
	if _, err := wrong.Retrieve("enc@example.com"); err == nil {
		t.Error("Wrong passphrase should not decrypt")
	}

	if err := store.Delete("enc@example.com"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Error("Empty store should remove its file")
	}
}

func TestEncryptedFileStoreKeepsRotationOrder(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "accounts.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(tempFile, "order_passphrase")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	for _, email := range []string{"carol@example.com", "alice@example.com", "bob@example.com"} {
		if err := store.Store(&Account{Email: email, Password: "pw-" + email}); err != nil {
			t.Fatalf("Failed to store %s: %v", email, err)
		}
	}
	// re-storing keeps the slot and takes the new password
	if err := store.Store(&Account{Email: "carol@example.com", Password: "rotated"}); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	assertOrder := func(want ...string) {
		t.Helper()
		accounts, err := store.List()
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		got := make([]string, len(accounts))
		for i, a := range accounts {
			got[i] = a.Email
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("List order = %v, want %v", got, want)
		}
	}
	assertOrder("carol@example.com", "alice@example.com", "bob@example.com")

	carol, err := store.Retrieve("carol@example.com")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if carol.Password != "rotated" {
		t.Errorf("Expected updated password, got %q", carol.Password)
	}

	if err := store.Delete("alice@example.com"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	assertOrder("carol@example.com", "bob@example.com")

	if err := store.Delete("alice@example.com"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	// a second handle on the same file sees the same order
	reopened, _ := NewEncryptedFileStoreWithPassphrase(tempFile, "order_passphrase")
	accounts, err := reopened.List()
	if err != nil || len(accounts) != 2 || accounts[0].Email != "carol@example.com" {
		t.Errorf("Reopened store lost order: %v %v", accounts, err)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()

	first, err := NewEncryptedFileStore(filepath.Join(dir, "accounts.enc"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := first.Store(&Account{Email: "gen@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); err != nil {
		t.Fatalf("Expected a generated passphrase file: %v", err)
	}

	second, err := NewEncryptedFileStore(filepath.Join(dir, "accounts.enc"))
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if !second.Exists("gen@example.com") {
		t.Error("Reopened store should decrypt with the saved passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvEmail, "env@example.com")
	t.Setenv(EnvUsername, "env_user")
	t.Setenv(EnvPassword, "env_pass")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Email != "env@example.com" || account.Password != "env_pass" {
		t.Errorf("Unexpected account %+v", account)
	}
	if store.Exists("other@example.com") {
		t.Error("Only the configured email should exist")
	}

	if err := store.Store(&Account{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestImport(t *testing.T) {
	src := NewMockStore()
	_ = src.Store(&Account{Email: "a@example.com", Password: "1"})
	_ = src.Store(&Account{Email: "b@example.com", Password: "2"})

	manager, dst := NewMockManager()
	n, err := manager.Import(src)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 2 || dst.Count() != 2 {
		t.Errorf("Expected 2 imported, got %d (store has %d)", n, dst.Count())
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	accounts, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected 0 accounts, got %d", len(accounts))
	}

	if err := store.Store(&Account{Email: "mock@example.com", Password: "pw"}); err != nil {
		t.Errorf("Failed to store account: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 account, got %d", store.Count())
	}
	if !store.Exists("mock@example.com") {
		t.Error("Account should exist")
	}

	store.ListError = fmt.Errorf("injected error")
	_, err = store.List()
	if err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestTerminalCheckpoint(t *testing.T) {
	var out bytes.Buffer
	cp := &TerminalCheckpoint{
		In:          strings.NewReader("\n"),
		Out:         &out,
		Interactive: func() bool { return true },
	}
	if err := cp.AwaitManual(context.Background(), "Solve the challenge"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Solve the challenge") {
		t.Error("Prompt was not printed")
	}

	cp.Interactive = func() bool { return false }
	if err := cp.AwaitManual(context.Background(), "x"); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("Expected ErrNotInteractive, got %v", err)
	}
}

func TestTerminalCheckpointCancelled(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cp := &TerminalCheckpoint{In: r, Out: &bytes.Buffer{}}
	if err := cp.AwaitManual(ctx, "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestShowAccountsGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowAccountsGuide(&buf)
	if !strings.Contains(buf.String(), "email,username,password") {
		t.Error("Guide should show the accounts header")
	}
}
