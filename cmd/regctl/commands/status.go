package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show registry status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out registryv1.StatusResponse
			if err := newClient().do(http.MethodGet, "/v1/registry/status", nil, &out); err != nil {
				return err
			}
			fmt.Printf("Identities allocated: %d\n", out.Counter)
			if out.TrustedOnly {
				caller := out.TrustedCaller
				if caller == "" {
					caller = "(none designated)"
				}
				fmt.Printf("Registration: trusted-only, caller %s\n", caller)
			} else {
				fmt.Println("Registration: open")
			}
			if out.Paused {
				fmt.Println("New registrations: paused")
			}
			return nil
		},
	}
}
