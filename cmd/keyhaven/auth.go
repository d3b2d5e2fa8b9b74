package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Query and exercise device authentication",
}

var authBiometricsOnly bool

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether device authentication is currently available",
	Long:  "Report whether the device can authenticate its owner. Never prompts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack("cli")
		if err != nil {
			return err
		}
		defer s.Close()

		argsJSON := json.RawMessage(nil)
		if authBiometricsOnly {
			argsJSON = json.RawMessage(`{"policy":"biometricsOnly"}`)
		}
		result, err := s.dispatcher.Invoke(context.Background(), "canAuthenticate", argsJSON)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

var authTypeCmd = &cobra.Command{
	Use:   "type",
	Short: "Show the strongest enrolled device-owner verification method",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack("cli")
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.dispatcher.Invoke(context.Background(), "getDeviceSecurityType", nil)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

var authAllowReuse bool

var authChallengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Run an interactive device authentication challenge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack("cli")
		if err != nil {
			return err
		}
		defer s.Close()

		raw, _ := json.Marshal(map[string]bool{"allowReuse": authAllowReuse})
		result, err := s.dispatcher.Invoke(context.Background(), "authenticate", raw)
		if err != nil {
			return err
		}
		if result == true {
			fmt.Println("authenticated")
		} else {
			fmt.Println("not authenticated")
		}
		return nil
	},
}

func init() {
	authCheckCmd.Flags().BoolVar(&authBiometricsOnly, "biometrics-only", false, "Check biometric availability only")
	authChallengeCmd.Flags().BoolVar(&authAllowReuse, "allow-reuse", false, "Accept a recent prior authentication instead of prompting")

	authCmd.AddCommand(authCheckCmd)
	authCmd.AddCommand(authTypeCmd)
	authCmd.AddCommand(authChallengeCmd)
	rootCmd.AddCommand(authCmd)
}
