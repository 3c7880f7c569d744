package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "idregistry/internal/jwt_token"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a caller token from the local key",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, addr, err := loadSigner()
			if err != nil {
				return err
			}
			token, err := jwttoken.NewJWTService(audience).GenerateAccessToken(priv, ttl)
			if err != nil {
				return err
			}
			fmt.Printf("Caller: %s\n%s\n", addr, token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	return cmd
}
