package main

import (
	"context"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
)

var (
	flagName  string
	flagEmail string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a local account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagName == "" || flagEmail == "" {
			return fmt.Errorf("--name and --email are required")
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		users, err := openUserService()
		if err != nil {
			return err
		}
		u, err := users.Register(context.Background(), flagName, flagEmail, password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>\n", u.Name, u.Email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a local account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagEmail == "" {
			return fmt.Errorf("--email is required")
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		users, err := openUserService()
		if err != nil {
			return err
		}
		u, err := users.Login(context.Background(), flagEmail, password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>\n", u.Name, u.Email)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&flagEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "Email address")
}

func openStore() (storage.Store, error) {
	return storage.NewFileStore(flagStoragePath)
}

func openUserService() (*user.Service, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return user.NewService(store), nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
