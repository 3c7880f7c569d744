package commands

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"idregistry/internal/signature"
	"idregistry/pkg/domain"
)

// Consents are signed by the receiving party, so every subcommand binds the
// consent to the local key's own address and hands the blob to whoever will
// submit the operation.
func consentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Sign consents authorizing registry operations on your address",
	}
	cmd.AddCommand(consentRegisterCmd(), consentTransferCmd(), consentRecoverCmd())
	return cmd
}

func consentRegisterCmd() *cobra.Command {
	var (
		recovery string
		deadline int64
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Consent to an identity being registered for you",
		RunE: func(cmd *cobra.Command, args []string) error {
			recoveryAddr, err := domain.ParseOptionalAddress(recovery)
			if err != nil {
				return fmt.Errorf("recovery: %w", err)
			}
			priv, addr, err := loadSigner()
			if err != nil {
				return err
			}
			expiry := resolveDeadline(deadline, ttl)
			envelope, err := signature.Sign(priv, signature.RegisterConsent(addr, recoveryAddr, expiry))
			if err != nil {
				return err
			}
			printConsent(addr, expiry, envelope)
			return nil
		},
	}
	cmd.Flags().StringVar(&recovery, "recovery", "", "recovery address the new identity starts with")
	deadlineFlags(cmd, &deadline, &ttl)
	return cmd
}

func consentTransferCmd() *cobra.Command {
	var (
		id       uint64
		deadline int64
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Consent to receiving an identity by transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, addr, err := loadSigner()
			if err != nil {
				return err
			}
			expiry := resolveDeadline(deadline, ttl)
			envelope, err := signature.Sign(priv, signature.TransferConsent(domain.IdentityID(id), addr, expiry))
			if err != nil {
				return err
			}
			printConsent(addr, expiry, envelope)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "identity number being transferred")
	_ = cmd.MarkFlagRequired("id")
	deadlineFlags(cmd, &deadline, &ttl)
	return cmd
}

func consentRecoverCmd() *cobra.Command {
	var (
		id       uint64
		deadline int64
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Consent to receiving an identity by recovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, addr, err := loadSigner()
			if err != nil {
				return err
			}
			expiry := resolveDeadline(deadline, ttl)
			envelope, err := signature.Sign(priv, signature.RecoverConsent(domain.IdentityID(id), addr, expiry))
			if err != nil {
				return err
			}
			printConsent(addr, expiry, envelope)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "identity number being recovered")
	_ = cmd.MarkFlagRequired("id")
	deadlineFlags(cmd, &deadline, &ttl)
	return cmd
}

func deadlineFlags(cmd *cobra.Command, deadline *int64, ttl *time.Duration) {
	cmd.Flags().Int64Var(deadline, "deadline", 0, "consent expiry as Unix seconds (overrides --ttl)")
	cmd.Flags().DurationVar(ttl, "ttl", time.Hour, "consent validity from now")
}

func printConsent(signer domain.Address, deadline int64, envelope []byte) {
	fmt.Printf("Signer:    %s\nDeadline:  %d (%s)\nSignature: %s\n",
		signer, deadline, time.Unix(deadline, 0).UTC().Format(time.RFC3339),
		base64.StdEncoding.EncodeToString(envelope))
}
