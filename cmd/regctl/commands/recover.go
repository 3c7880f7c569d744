package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func recoverCmd() *cobra.Command {
	var (
		from     string
		to       string
		deadline int64
		sig      string
		viaProxy bool
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover an identity from a lost address",
		Long: `Moves the identity held by --from to --to. The caller must be the identity's
recovery address; --via-proxy submits through the hosted recovery proxy
instead, for callers controlling it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := authedClient()
			if err != nil {
				return err
			}
			path := "/v1/identities/recover"
			if viaProxy {
				path = "/v1/proxy/recover"
			}
			req := registryv1.RecoverRequest{From: from, To: to, Deadline: deadline, Signature: sig}
			if err := client.do(http.MethodPost, path, req, nil); err != nil {
				return err
			}
			fmt.Printf("Recovered identity from %s to %s\n", from, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "address currently holding the identity")
	cmd.Flags().StringVar(&to, "to", "", "receiving address")
	cmd.Flags().Int64Var(&deadline, "deadline", 0, "consent deadline as Unix seconds")
	cmd.Flags().StringVar(&sig, "signature", "", "base64 consent signed by the receiving party")
	cmd.Flags().BoolVar(&viaProxy, "via-proxy", false, "submit through the hosted recovery proxy")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("deadline")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
