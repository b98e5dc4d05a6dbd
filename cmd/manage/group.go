package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage post groups",
}

var groupDescription string

var groupCreateCmd = &cobra.Command{
	Use:   "create <slug> <title>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		g, err := current.blog.CreateGroup(ctx, args[1], args[0], groupDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Created group %s (id %d)\n", g.Slug, g.ID)
		return nil
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a group; its posts are kept without a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		if err := current.blog.DeleteGroup(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted group %s\n", args[0])
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		groups, err := current.blog.ListGroups(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSLUG\tTITLE")
		for _, g := range groups {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		return tw.Flush()
	},
}

func init() {
	groupCreateCmd.Flags().StringVar(&groupDescription, "description", "", "group description")

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupListCmd)
}
