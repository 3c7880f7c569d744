package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <address>",
		Short: "Look up the identity held by an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out registryv1.OwnerResponse
			if err := newClient().do(http.MethodGet, "/v1/identities/owner/"+args[0], nil, &out); err != nil {
				return err
			}
			if out.ID == 0 {
				fmt.Printf("%s holds no identity\n", out.Address)
			} else {
				fmt.Printf("%s holds identity %d\n", out.Address, out.ID)
			}
			return nil
		},
	}
}
