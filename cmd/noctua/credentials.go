package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"noctua/pkg/config"
)

// newCredentialsCmd builds `noctua credentials set`, which collects provider
// API keys and encrypts them to baseDir/.noctua/credentials.json.enc.
// Grounded on the teacher's cmd/maestro interactive bootstrap's
// handleCredentialStorage/promptForPassword pair: a masked, confirmed
// passphrase via golang.org/x/term.ReadPassword, then one prompt per secret.
func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage encrypted-at-rest provider credentials",
	}
	cmd.AddCommand(newCredentialsSetCmd())
	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Prompt for provider API keys and encrypt them to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			passphrase, err := promptForPassphrase(out)
			if err != nil {
				return err
			}

			secrets, err := promptForSecrets(out)
			if err != nil {
				return err
			}
			if len(secrets) == 0 {
				fmt.Fprintln(out, "no keys entered, nothing saved")
				return nil
			}

			if err := config.SaveCredentialsFile(cfg.BaseDir, passphrase, secrets); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}
			fmt.Fprintln(out, "credentials encrypted and saved")
			return nil
		},
	}
}

// promptForPassphrase reads a passphrase twice with echo disabled and
// requires the two entries to match, retrying up to three times.
func promptForPassphrase(out io.Writer) (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(out, "Enter a passphrase to encrypt your credentials: ")
		p1, err := term.ReadPassword(syscall.Stdin)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}

		fmt.Fprint(out, "Confirm passphrase: ")
		p2, err := term.ReadPassword(syscall.Stdin)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}

		if bytes.Equal(p1, p2) {
			return string(p1), nil
		}
		if attempt < maxAttempts {
			fmt.Fprintln(out, "passphrases do not match, try again")
			continue
		}
		return "", fmt.Errorf("passphrases did not match after %d attempts", maxAttempts)
	}
	return "", fmt.Errorf("unreachable")
}

var credentialPrompts = []struct {
	envVar string
	label  string
}{
	{"ANTHROPIC_API_KEY", "Anthropic API key"},
	{"OPENAI_API_KEY", "OpenAI API key"},
	{"GOOGLE_API_KEY", "Google (Gemini) API key"},
}

func promptForSecrets(out io.Writer) (map[string]string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	secrets := make(map[string]string)
	for _, p := range credentialPrompts {
		fmt.Fprintf(out, "Enter %s (optional, press Enter to skip): ", p.label)
		if !scanner.Scan() {
			break
		}
		value := strings.TrimSpace(scanner.Text())
		if value != "" {
			secrets[p.envVar] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return secrets, nil
}
