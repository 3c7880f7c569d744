package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"idregistry/internal/keys"
)

func keygenCmd() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a mnemonic and the registry address it controls",
		RunE: func(cmd *cobra.Command, args []string) error {
			mnemonic, err := keys.NewMnemonic()
			if err != nil {
				return err
			}
			_, addr, err := keys.Derive(mnemonic)
			if err != nil {
				return err
			}

			if outFile == "" {
				fmt.Printf("Mnemonic: %s\nAddress:  %s\n", mnemonic, addr)
				fmt.Println("Back up the mnemonic; it is the only way to recover the key.")
				return nil
			}

			if _, err := os.Stat(outFile); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", outFile)
			}
			if err := os.MkdirAll(filepath.Dir(outFile), 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(outFile, []byte(mnemonic+"\n"), 0o600); err != nil {
				return err
			}
			fmt.Printf("Mnemonic written to %s\nAddress: %s\n", outFile, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&outFile, "out", "", "write the mnemonic to this file instead of stdout")
	return cmd
}
