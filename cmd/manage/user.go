package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yatube/yatube-backend/internal/auth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userEmail    string
	userPassword string
	userStaff    bool
)

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an account",
	Long: `Create an account. The password is read from --password or, when
that is empty, from the YT_USER_PASSWORD environment variable. Staff
accounts may clear the page cache over HTTP.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		password := userPassword
		if password == "" {
			password = os.Getenv("YT_USER_PASSWORD")
		}
		u, err := current.auth.CreateUser(ctx, &auth.SignupForm{
			Username:  args[0],
			Email:     userEmail,
			Password1: password,
			Password2: password,
		}, userStaff)

		var formErrs *auth.SignupFormErrors
		if errors.As(err, &formErrs) {
			for _, msg := range []string{formErrs.Username, formErrs.Email, formErrs.Password1, formErrs.Password2} {
				if msg != "" {
					fmt.Fprintln(os.Stderr, msg)
				}
			}
			return errors.New("user not created")
		}
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (id %d, staff %t)\n", u.Username, u.ID, u.IsStaff)
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an account with its posts, comments and follows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		if err := current.auth.DeleteUser(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted user %s\n", args[0])
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password")
	userCreateCmd.Flags().BoolVar(&userStaff, "staff", false, "grant staff rights")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userDeleteCmd)
}
