package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-pay/sdk"
)

// errIncompatible makes version-check exit non-zero
var errIncompatible = errors.New("server version is not compatible with this client")

// NewVersionCheckCommand creates the version-check command, an offline
// compatibility check of a server version triple against this client.
func NewVersionCheckCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version-check SERVER_VERSION",
		Short: "Check whether a server API version supports this client",
		Example: `  birbpay version-check 6:0:2
  birbpay version-check 8:1:1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionCheck(opts, args[0])
		},
	}
}

func runVersionCheck(opts *GlobalOptions, serverVersion string) error {
	v, ok := sdk.ParseVersion(serverVersion)
	if !ok {
		fmt.Fprintf(opts.Out, "%q is not a current:revision:age triple; treated as compatible\n", serverVersion)
		return nil
	}

	if !v.Supports(sdk.ClientInterface) {
		fmt.Fprintf(opts.Out, "server %s serves interfaces %d..%d; client interface %d is not supported\n",
			v, v.Current-v.Age, v.Current, sdk.ClientInterface)
		return errIncompatible
	}

	fmt.Fprintf(opts.Out, "server %s supports client interface %d\n", v, sdk.ClientInterface)
	return nil
}
