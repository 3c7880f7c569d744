package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/domain"
)

func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Inspect and steer the hosted recovery proxy",
	}
	cmd.AddCommand(proxyControllerCmd(), proxyNominateCmd(), proxyAcceptCmd())
	return cmd
}

func proxyControllerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "controller",
		Short: "Show the proxy's address and controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out registryv1.ControllerResponse
			if err := newClient().do(http.MethodGet, "/v1/proxy/controller", nil, &out); err != nil {
				return err
			}
			fmt.Printf("Proxy address: %s\nController:    %s\n", out.Address, orNone(out.Controller))
			if out.PendingController != "" {
				fmt.Printf("Pending:       %s\n", out.PendingController)
			}
			return nil
		},
	}
}

func proxyNominateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nominate [address]",
		Short: "Nominate the proxy's next controller (no address withdraws)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nominee := ""
			if len(args) == 1 {
				addr, err := domain.ParseAddress(args[0])
				if err != nil {
					return fmt.Errorf("nominee: %w", err)
				}
				nominee = addr.String()
			}
			client, _, err := authedClient()
			if err != nil {
				return err
			}
			req := registryv1.NominateControllerRequest{Nominee: nominee}
			if err := client.do(http.MethodPost, "/v1/proxy/controller/transfer", req, nil); err != nil {
				return err
			}
			if nominee == "" {
				fmt.Println("Standing nomination withdrawn")
			} else {
				fmt.Printf("Nominated %s; the handoff completes when they accept\n", nominee)
			}
			return nil
		},
	}
}

func proxyAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Accept a pending nomination as proxy controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, caller, err := authedClient()
			if err != nil {
				return err
			}
			if err := client.do(http.MethodPost, "/v1/proxy/controller/accept", nil, nil); err != nil {
				return err
			}
			fmt.Printf("%s now controls the recovery proxy\n", caller)
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
