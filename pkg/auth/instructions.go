package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAccountsGuide explains the account and proxy file formats.
func ShowAccountsGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "📚 ACCOUNT SETUP")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Searching requires a logged-in session. Accounts are tried in order")
	fmt.Fprintln(w, "until one logs in; the rest are left untouched.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📄 accounts.csv")
	fmt.Fprintln(w, "   email,username,password")
	fmt.Fprintln(w, "   me@example.com,my_handle,s3cret")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   • username is only used when the site asks to confirm the handle")
	fmt.Fprintln(w, "   • rows without an email or password are skipped")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🔐 Other sources (accounts.source in config)")
	fmt.Fprintln(w, "   keyring    system keychain, managed with 'xscraper accounts add'")
	fmt.Fprintln(w, "   encrypted  AES-encrypted file, passphrase from XSCRAPER_PASSPHRASE")
	fmt.Fprintf(w, "   env        %s / %s / %s\n", EnvEmail, EnvUsername, EnvPassword)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🌐 proxylist.csv (optional, ';' separated)")
	fmt.Fprintln(w, "   ip;port;http;https;socks4;socks5")
	fmt.Fprintln(w, "   10.0.0.1;8080;yes;yes;no;no")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "⚠️  Use secondary accounts. Automated logins can get an account locked.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
