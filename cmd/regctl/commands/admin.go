package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/domain"
)

func adminCmd() *cobra.Command {
	var adminToken string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands (require the admin token)",
	}
	cmd.PersistentFlags().StringVar(&adminToken, "admin-token", os.Getenv("ADMIN_TOKEN"), "admin token (env ADMIN_TOKEN)")

	adminClient := func() (*apiClient, error) {
		if adminToken == "" {
			return nil, fmt.Errorf("admin token required (--admin-token or ADMIN_TOKEN)")
		}
		c := newClient()
		c.admin = adminToken
		return c, nil
	}

	trustedCaller := &cobra.Command{
		Use:   "trusted-caller <address>",
		Short: "Designate the sole caller allowed to register during bootstrap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := domain.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
			client, err := adminClient()
			if err != nil {
				return err
			}
			req := registryv1.TrustedCallerRequest{Address: addr.String()}
			if err := client.do(http.MethodPost, "/v1/admin/trusted-caller", req, nil); err != nil {
				return err
			}
			fmt.Printf("Trusted caller set to %s\n", addr)
			return nil
		},
	}

	openRegistration := &cobra.Command{
		Use:   "open-registration",
		Short: "Permanently open self-registration to every address",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient()
			if err != nil {
				return err
			}
			if err := client.do(http.MethodPost, "/v1/admin/open-registration", nil, nil); err != nil {
				return err
			}
			fmt.Println("Registration is now open; the transition is permanent")
			return nil
		},
	}

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Pause new registrations (existing identities keep working)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient()
			if err != nil {
				return err
			}
			if err := client.do(http.MethodPost, "/v1/admin/pause", nil, nil); err != nil {
				return err
			}
			fmt.Println("New registrations paused")
			return nil
		},
	}

	unpause := &cobra.Command{
		Use:   "unpause",
		Short: "Resume new registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient()
			if err != nil {
				return err
			}
			if err := client.do(http.MethodPost, "/v1/admin/unpause", nil, nil); err != nil {
				return err
			}
			fmt.Println("New registrations resumed")
			return nil
		},
	}

	var auditLimit int
	auditRecent := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient()
			if err != nil {
				return err
			}
			raw, err := client.doRaw(http.MethodGet, fmt.Sprintf("/v1/admin/audit/recent?limit=%d", auditLimit), nil)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return err
			}
			fmt.Println(pretty.String())
			return nil
		},
	}
	auditRecent.Flags().IntVar(&auditLimit, "limit", 50, "number of events to show")

	cmd.AddCommand(trustedCaller, openRegistration, pause, unpause, auditRecent)
	return cmd
}
