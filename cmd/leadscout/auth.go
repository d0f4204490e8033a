package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"leadscout/pkg/auth"
	"leadscout/pkg/ui"
)

const setupGuide = `To use the Reddit API you need a "script" app:

  1. Sign in to Reddit with the account leadscout should act as
  2. Open https://www.reddit.com/prefs/apps and click "create another app"
  3. Pick "script", give it a name and use http://localhost as redirect uri
  4. The client id is the string under the app name
  5. The client secret is labelled "secret"

Reddit asks for a unique, descriptive user agent such as
"leadscout/1.0 by u/yourname".`

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Reddit credentials",
	Long: `Manage Reddit script-app credentials.

Credentials are stored in the system keychain when available, otherwise
in an encrypted file under the leadscout config directory. The
LEADSCOUT_REDDIT_* environment variables are read as a fallback.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Reddit credentials",
	Long:  "Store Reddit credentials securely.\n\n" + setupGuide,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with masked secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			ui.PrintInfo("No stored accounts", "use 'leadscout auth login' to add one")
			return nil
		}

		ui.PrintHighlight("Stored Accounts")
		for i, account := range accounts {
			clean := auth.SanitizeAccount(account)
			fmt.Printf("%d. u/%s\n", i+1, clean.Username)
			fmt.Printf("   Client ID:     %s\n", clean.ClientID)
			fmt.Printf("   Client Secret: %s\n", clean.ClientSecret)
			fmt.Printf("   Password:      %s\n", clean.Password)
			if clean.UserAgent != "" {
				fmt.Printf("   User Agent:    %s\n", clean.UserAgent)
			}
			fmt.Printf("   Last Modified: %s\n\n", clean.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	fmt.Println(setupGuide)
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	account := &auth.Account{}
	if len(args) > 0 {
		account.Username = strings.TrimSpace(args[0])
	} else if account.Username, err = prompt(reader, "Reddit username: "); err != nil {
		return err
	}
	account.Username = strings.TrimPrefix(account.Username, "u/")

	if existing, _ := manager.Retrieve(account.Username); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update it? (y/N): ", account.Username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Print("Reddit password: ")
	if account.Password, err = readSecret(reader); err != nil {
		return err
	}
	if account.ClientID, err = prompt(reader, "Client ID: "); err != nil {
		return err
	}
	fmt.Print("Client secret: ")
	if account.ClientSecret, err = readSecret(reader); err != nil {
		return err
	}
	if account.UserAgent, err = prompt(reader, "User agent (Enter for default): "); err != nil {
		return err
	}

	if err := manager.Store(account); err != nil {
		return err
	}
	ui.PrintSuccess("Credentials stored for u/" + account.Username)
	fmt.Printf("\nUse them with: leadscout run --account %s\n", account.Username)
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}
