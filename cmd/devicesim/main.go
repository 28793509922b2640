// devicesim exercises the device-facing API: it polls for queued commands,
// applies them to a simulated lock or sensor and reports state back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	serverURL string
	apiKey    string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "devicesim",
	Short: "Simulate reservation devices against a running backend",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			fmt.Print("Username: ")
			fmt.Scanln(&username)
		}
		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}

		c := newClient(serverURL)
		token, err := c.login(username, string(pw))
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authToken == "" {
			return fmt.Errorf("--token is required")
		}

		c := newClient(serverURL)
		c.token = authToken
		devices, err := c.devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("%4d  %-8s %-10s %s\n", d.ID, d.Type, d.Status, d.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "backend base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "device API key")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for user endpoints")

	loginCmd.Flags().String("username", "", "account username")

	rootCmd.AddCommand(loginCmd, devicesCmd, runCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
