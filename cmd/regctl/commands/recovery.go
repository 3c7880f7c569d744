package commands

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func recoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Manage an identity's recovery address",
	}
	cmd.AddCommand(recoverySetCmd(), recoveryShowCmd())
	return cmd
}

func recoverySetCmd() *cobra.Command {
	var recovery string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set your identity's recovery address (empty disables recovery)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, caller, err := authedClient()
			if err != nil {
				return err
			}
			req := registryv1.SetRecoveryRequest{Recovery: recovery}
			if err := client.do(http.MethodPut, "/v1/identities/recovery", req, nil); err != nil {
				return err
			}
			if recovery == "" {
				fmt.Printf("Recovery disabled for %s\n", caller)
			} else {
				fmt.Printf("Recovery address for %s set to %s\n", caller, recovery)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recovery, "recovery", "", "new recovery address; empty disables recovery")
	return cmd
}

func recoveryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the recovery address of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid identity number %q", args[0])
			}
			var out registryv1.RecoveryResponse
			if err := newClient().do(http.MethodGet, fmt.Sprintf("/v1/identities/%d/recovery", id), nil, &out); err != nil {
				return err
			}
			if out.Recovery == "" {
				fmt.Printf("Identity %d has recovery disabled\n", out.ID)
			} else {
				fmt.Printf("Identity %d recovers to %s\n", out.ID, out.Recovery)
			}
			return nil
		},
	}
}
