package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage account passwords in the OS secret store",
}

var accountSetCmd = &cobra.Command{
	Use:   "set <service> <account> [password]",
	Short: "Store a new account password",
	Long:  "Store a new account password. If the password is omitted, reads it from stdin. Fails if the entry already exists; use upsert to overwrite.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWrite("createAccountPassword", args, "stored")
	},
}

var accountUpdateCmd = &cobra.Command{
	Use:   "update <service> <account> [password]",
	Short: "Update an existing account password",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWrite("updateAccountPassword", args, "updated")
	},
}

var accountUpsertCmd = &cobra.Command{
	Use:   "upsert <service> <account> [password]",
	Short: "Store an account password, overwriting any existing one",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWrite("upsertAccountPassword", args, "stored")
	},
}

var accountGetCmd = &cobra.Command{
	Use:   "get <service> <account>",
	Short: "Retrieve an account password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack("cli")
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := invokeAccount(s, "readAccountPassword", args[0], args[1], nil)
		if err != nil {
			return err
		}
		if result == nil {
			return errors.New("password not found (or authentication was canceled)")
		}
		fmt.Println(result)
		return nil
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:     "delete <service> <account>",
	Short:   "Remove an account password",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack("cli")
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := invokeAccount(s, "deleteAccountPassword", args[0], args[1], nil)
		if err != nil {
			return err
		}
		if result == true {
			fmt.Printf("Password for %s/%s deleted\n", args[0], args[1])
		} else {
			fmt.Printf("No password stored for %s/%s\n", args[0], args[1])
		}
		return nil
	},
}

func runWrite(method string, args []string, verb string) error {
	s, err := buildStack("cli")
	if err != nil {
		return err
	}
	defer s.Close()

	password, err := passwordArg(args)
	if err != nil {
		return err
	}

	result, err := invokeAccount(s, method, args[0], args[1], &password)
	if err != nil {
		return err
	}
	if result == false {
		return errors.New("canceled")
	}
	fmt.Printf("Password for %s/%s %s\n", args[0], args[1], verb)
	return nil
}

// passwordArg takes the password from the third argument or, if
// omitted, from stdin — hidden when stdin is a terminal.
func passwordArg(args []string) (string, error) {
	if len(args) == 3 {
		return args[2], nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Enter password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		fmt.Println()
		return string(b), nil
	}

	b, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func invokeAccount(s *stack, method, service, acct string, password *string) (any, error) {
	args := map[string]any{
		"serviceName": service,
		"accountName": acct,
	}
	if password != nil {
		args["password"] = *password
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Invoke(context.Background(), method, raw)
}

func init() {
	accountCmd.AddCommand(accountSetCmd)
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountUpdateCmd)
	accountCmd.AddCommand(accountUpsertCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	rootCmd.AddCommand(accountCmd)
}
