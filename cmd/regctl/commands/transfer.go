package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	registryv1 "idregistry/contracts/registry"
)

func transferCmd() *cobra.Command {
	var (
		to       string
		deadline int64
		sig      string
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer your identity to another address",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, caller, err := authedClient()
			if err != nil {
				return err
			}
			req := registryv1.TransferRequest{To: to, Deadline: deadline, Signature: sig}
			if err := client.do(http.MethodPost, "/v1/identities/transfer", req, nil); err != nil {
				return err
			}
			fmt.Printf("Transferred identity from %s to %s\n", caller, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "receiving address")
	cmd.Flags().Int64Var(&deadline, "deadline", 0, "consent deadline as Unix seconds")
	cmd.Flags().StringVar(&sig, "signature", "", "base64 consent signed by the receiving party")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("deadline")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
