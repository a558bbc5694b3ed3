package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	passphraseCmd.AddCommand(passphraseSetCmd, passphraseClearCmd)
	rootCmd.AddCommand(passphraseCmd)
}

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Show whether a keychain passphrase override is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := newClient().PassphraseSet(cmd.Context())
		if err != nil {
			return err
		}
		if set {
			fmt.Println("Keychain passphrase: set (stored in settings)")
		} else {
			fmt.Println("Keychain passphrase: not set (config value is used)")
		}
		return nil
	},
}

var passphraseSetCmd = &cobra.Command{
	Use:   "set [PASSPHRASE]",
	Short: "Store the keychain passphrase passed to the downloader",
	Long:  `Store the keychain passphrase. Reads one line from stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value string
		if len(args) == 1 {
			value = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read passphrase: %w", err)
			}
			value = strings.TrimRight(line, "\r\n")
		}
		if value == "" {
			return fmt.Errorf("empty passphrase; use 'harbor passphrase clear' to remove it")
		}
		if err := newClient().SetPassphrase(cmd.Context(), value); err != nil {
			return err
		}
		fmt.Println("Keychain passphrase stored.")
		return nil
	},
}

var passphraseClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored keychain passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().SetPassphrase(cmd.Context(), ""); err != nil {
			return err
		}
		fmt.Println("Keychain passphrase cleared.")
		return nil
	},
}
