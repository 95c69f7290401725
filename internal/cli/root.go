// Package cli implements the secagg command-line harness.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "secagg",
		Short: "secagg - secure aggregation client core",
		Long: `secagg exercises the client side of a secure aggregation protocol.

Every participant masks its model update with a pseudorandom vector derived
from a private seed and Shamir-shares that seed with its peers. When
participants drop out, the survivors release their shares of the dropped
seeds so the aggregator can remove the missing masks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
