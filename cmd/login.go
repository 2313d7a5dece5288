package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/qodetech/pulsectl/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd signs in with email and password and stores the token pair.
func loginCmd(a *app) *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Pulse",
		Long:  "Log in with your email and password. The tokens are kept in the configured token store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())

			var err error
			if email == "" {
				if email, err = promptForInput(cmd, reader, "Email: "); err != nil {
					return clierr.New(clierr.Validation, "Failed to read email.", err)
				}
			}
			if err := validation.ValidateEmail(email); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			var password string
			if passwordStdin {
				password, err = readLine(reader)
			} else {
				password, err = promptForPassword(cmd, reader, "Password: ")
			}
			if err != nil {
				return clierr.New(clierr.Validation, "Failed to read password.", err)
			}
			if err := validation.ValidateNonEmptyString("password", password); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			user, err := a.reg.Session().Login(cmd.Context(), email, password)
			if err != nil {
				if client.IsStatus(err, http.StatusUnauthorized) {
					return clierr.New(clierr.Auth, "Invalid email or password.", err)
				}
				return requestError(err)
			}

			name := email
			if user != nil && user.Email != "" {
				name = user.Email
			}
			cmd.Printf("Logged in as %s.\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")

	return cmd
}

// promptForInput prints prompt and returns the trimmed line read from reader.
func promptForInput(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	return readLine(reader)
}

// promptForPassword reads a password without echo when stdin is a terminal.
func promptForPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(password)), nil
	}
	return readLine(reader)
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
