package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

var (
	tokenSubject string
	tokenExpiry  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a client",
	Long: `Signs a JWT with the configured secret (jwt.secret or JWT_SECRET).

Example:
  redacao token --subject escola-42 --expiry 720h`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Client identifier (required)")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "Token lifetime (default: jwt.expiry)")
	tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	expiry := tokenExpiry
	if expiry == 0 {
		expiry = time.Duration(cfg.JWT.Expiry) * time.Minute
	}
	tokens := utils.NewTokenManager(cfg.JWT.Secret, expiry)
	if tokens == nil {
		return errors.New("no JWT secret configured")
	}
	token, err := tokens.GenerateJWTToken(tokenSubject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
