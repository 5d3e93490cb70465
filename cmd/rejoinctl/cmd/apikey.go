package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/prperemyshlev/guild-rejoin/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var apiKeyCost int

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the admin API key",
}

var apiKeyHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Read a key from stdin and print the ADMIN_API_KEY_HASH value",
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		key := strings.TrimSpace(line)
		if key == "" {
			if err != nil {
				return fmt.Errorf("failed to read key: %w", err)
			}
			return fmt.Errorf("empty key")
		}

		hash, err := utils.HashAPIKey(key, apiKeyCost)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	apiKeyHashCmd.Flags().IntVar(&apiKeyCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	apiKeyCmd.AddCommand(apiKeyHashCmd)
}
