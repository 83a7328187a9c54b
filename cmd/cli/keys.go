package cli

import (
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/managers"

	"github.com/spf13/cobra"
)

func NewGenerateKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Generate a token encryption key",
		Long:  `Generate a fresh base64-encoded 256-bit key for INTEGRATION_TOKEN_CRYPTO_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := managers.GenerateCipherKey()
			if err != nil {
				return err
			}

			fmt.Printf("INTEGRATION_TOKEN_CRYPTO_KEY=%s\n", key)
			return nil
		},
	}
}
