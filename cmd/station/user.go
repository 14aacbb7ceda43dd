package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		configPath string
		email      string
		password   string
		staff      bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API user",
		Long: `Creates a user that can obtain tokens from /api/user/token.
Staff users may modify stations, routes, trains and journeys. The password
is prompted for when --password is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd, configPath, email, password, staff)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to station config file")
	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&password, "password", "", "user password")
	cmd.Flags().BoolVar(&staff, "staff", false, "grant staff privileges")
	cmd.MarkFlagRequired("email")
	return cmd
}

func runUserCreate(cmd *cobra.Command, configPath, email, password string, staff bool) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = readPassword(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
	}

	user, err := auth.CreateUser(gormDB, auth.NewHasher(nil), auth.UserOpts{
		Email:    email,
		Password: password,
		IsStaff:  staff,
	})
	if err != nil {
		return err
	}

	role := "user"
	if user.IsStaff {
		role = "staff user"
	}
	fmt.Fprintf(out, "Created %s %s (id %d)\n", role, user.Email, user.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
