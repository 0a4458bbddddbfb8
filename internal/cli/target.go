package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ocosta/remsync/internal/platform"
	"github.com/ocosta/remsync/pkg/config"
)

// NewTargetCommand creates the target command
func NewTargetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Manage workspace remote targets",
		Long:  `View or set the remote target path that a workspace deploys into.`,
	}

	cmd.AddCommand(newTargetListCommand())
	cmd.AddCommand(newTargetSetCommand())

	return cmd
}

func newTargetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured workspace targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTargetStore()
			if err != nil {
				return err
			}

			mapping, err := store.Get()
			if err != nil {
				return err
			}
			if len(mapping) == 0 {
				fmt.Println("No targets configured")
				return nil
			}

			workspaces := make([]string, 0, len(mapping))
			for workspace := range mapping {
				workspaces = append(workspaces, workspace)
			}
			sort.Strings(workspaces)

			for _, workspace := range workspaces {
				fmt.Printf("%s -> %s\n", workspace, mapping[workspace])
			}
			return nil
		},
	}
}

func newTargetSetCommand() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "set <remote-path>",
		Short: "Set the remote target for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remotePath := args[0]
			if !platform.IsRemotePathAbsolute(remotePath) {
				return fmt.Errorf("remote target path must be absolute: %s", remotePath)
			}

			root, err := resolveWorkspace(workspace)
			if err != nil {
				return err
			}

			store, err := openTargetStore()
			if err != nil {
				return err
			}
			if err := store.SetTarget(root, remotePath); err != nil {
				return err
			}

			fmt.Printf("%s -> %s\n", root, remotePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: current directory)")
	return cmd
}

func openTargetStore() (*config.TargetStore, error) {
	path, err := config.DefaultTargetPath()
	if err != nil {
		return nil, err
	}
	return config.NewTargetStore(path), nil
}
