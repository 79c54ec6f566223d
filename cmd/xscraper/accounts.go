package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xscraper/pkg/auth"
	"xscraper/pkg/ui"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage login accounts",
	Long: `Manage the accounts used to log in before searching.

Accounts live in the source named by accounts.source in the config:
  - file       accounts CSV (default)
  - keyring    system keychain
  - encrypted  encrypted file with PBKDF2 key derivation
  - env        environment variables (read only)

Use secondary accounts. Automated logins can get an account locked.`,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Add or update an account",
	Example: `  # Interactive
  xscraper accounts add

  # Store in the system keychain
  xscraper accounts add me@example.com --source keyring`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAccountsAdd,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts in rotation order",
	Long:  `List stored accounts with emails and passwords masked.`,
	Run:   runAccountsList,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountsRemove,
}

var accountsImportCmd = &cobra.Command{
	Use:   "import <accounts.csv>",
	Short: "Copy accounts from a CSV file into the configured source",
	Example: `  # Move plain-text accounts into the keychain
  xscraper accounts import accounts.csv --source keyring`,
	Args: cobra.ExactArgs(1),
	Run:  runAccountsImport,
}

var accountsGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain the account and proxy file formats",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowAccountsGuide(os.Stdout)
	},
}

var (
	accountSource string
	accountFile   string
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	accountsCmd.AddCommand(accountsImportCmd)
	accountsCmd.AddCommand(accountsGuideCmd)

	accountsCmd.PersistentFlags().StringVar(&accountSource, "source", "", "account source: file, keyring, encrypted or env")
	accountsCmd.PersistentFlags().StringVar(&accountFile, "file", "", "accounts CSV for the file source")
}

// openAccounts opens the account store from config, with --source and --file
// taking precedence.
func openAccounts() *auth.Manager {
	cfg, err := loadConfig(map[string]interface{}{"accounts": accountFile})
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	source := cfg.Accounts.Source
	if accountSource != "" {
		source = accountSource
	}
	manager, err := auth.NewManager(source, cfg.Accounts.File)
	if err != nil {
		ui.PrintError("Failed to initialize account store", err.Error())
		os.Exit(1)
	}
	return manager
}

func runAccountsAdd(cmd *cobra.Command, args []string) {
	manager := openAccounts()
	reader := bufio.NewReader(os.Stdin)

	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	} else {
		fmt.Print("📧 Email: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read email", err.Error())
			os.Exit(1)
		}
		email = strings.TrimSpace(input)
	}
	if email == "" {
		ui.PrintError("Email is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(email); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update it? (y/N): ", auth.MaskEmail(email))
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("👤 Username (handle, used if the site asks to confirm it): ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	fmt.Print("🔐 Password (hidden): ")
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}

	account := &auth.Account{Email: email, Username: username, Password: password}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", auth.MaskEmail(email)))
}

func runAccountsList(cmd *cobra.Command, args []string) {
	manager := openAccounts()
	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts stored.")
		fmt.Println("Run 'xscraper accounts add' or 'xscraper accounts guide'.")
		return
	}

	fmt.Printf("\n📋 Accounts (%d, tried in this order):\n\n", len(accounts))
	for i, a := range accounts {
		safe := auth.SanitizeAccount(a)
		handle := safe.Username
		if handle == "" {
			handle = "-"
		}
		fmt.Printf("  %d. %s  @%s  %s\n", i+1, ui.Cyan(safe.Email), handle, ui.Dim(safe.Password))
		if !safe.LastModified.IsZero() {
			fmt.Printf("     Modified: %s\n", safe.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Println()
}

func runAccountsRemove(cmd *cobra.Command, args []string) {
	manager := openAccounts()
	email := strings.TrimSpace(args[0])

	fmt.Printf("Remove account '%s'? (y/N): ", auth.MaskEmail(email))
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
		fmt.Println("Cancelled.")
		return
	}

	if err := manager.Delete(email); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Removed %s", auth.MaskEmail(email)))
}

func runAccountsImport(cmd *cobra.Command, args []string) {
	manager := openAccounts()
	n, err := manager.Import(auth.NewCSVStore(args[0]))
	if err != nil {
		ui.PrintError(fmt.Sprintf("Import stopped after %d accounts", n), err.Error())
		os.Exit(1)
	}
	if n == 0 {
		ui.PrintWarning("No usable accounts found in " + args[0])
		return
	}
	ui.PrintSuccess(fmt.Sprintf("Imported %d accounts", n))
}

// readPassword reads a password from terminal without echoing
func readPassword() (string, error) {
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
}
