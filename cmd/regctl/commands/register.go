package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func registerCmd() *cobra.Command {
	var (
		recovery string
		forAddr  string
		deadline int64
		sig      string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new identity",
		Long: `Registers an identity for yourself, or, with --for and a consent signed by
the receiving party, for another address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, caller, err := authedClient()
			if err != nil {
				return err
			}

			var out registryv1.IdentityResponse
			if forAddr != "" {
				if sig == "" || deadline == 0 {
					return fmt.Errorf("--for requires --deadline and --signature from the receiving party")
				}
				req := registryv1.RegisterForRequest{To: forAddr, Recovery: recovery, Deadline: deadline, Signature: sig}
				if err := client.do(http.MethodPost, "/v1/identities/register-for", req, &out); err != nil {
					return err
				}
				fmt.Printf("Registered identity %d for %s\n", out.ID, forAddr)
				return nil
			}

			if err := client.do(http.MethodPost, "/v1/identities", registryv1.RegisterRequest{Recovery: recovery}, &out); err != nil {
				return err
			}
			fmt.Printf("Registered identity %d for %s\n", out.ID, caller)
			return nil
		},
	}
	cmd.Flags().StringVar(&recovery, "recovery", "", "recovery address the identity starts with")
	cmd.Flags().StringVar(&forAddr, "for", "", "register for this address instead of yourself")
	cmd.Flags().Int64Var(&deadline, "deadline", 0, "consent deadline as Unix seconds")
	cmd.Flags().StringVar(&sig, "signature", "", "base64 consent signed by the receiving party")
	return cmd
}
