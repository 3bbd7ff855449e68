package app

import (
	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/internal/config"
)

// NewEnvCommand creates the env command listing every environment variable
// birbpay reads.
func NewEnvCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the BIRBPAY_* environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Usage(opts.Out)
		},
	}
}
