package main

import (
	"github.com/spf13/cobra"

	"gitea.kood.tech/saathi/matchmaking/client/coordinator"
)

func (c *cli) interestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interest",
		Aliases: []string{"i"},
		Short:   "Send, answer or withdraw interests",
	}
	sub := []struct {
		use, short string
		action     coordinator.Action
	}{
		{"send <profile-id>", "Send interest to a member", coordinator.ActionExpress},
		{"accept <profile-id>", "Accept the interest a member sent you", coordinator.ActionAccept},
		{"reject <profile-id>", "Decline the interest a member sent you", coordinator.ActionReject},
		{"remove <profile-id>", "Withdraw the interest you sent", coordinator.ActionRemove},
		{"resend <profile-id>", "Send interest again after an earlier decision", coordinator.ActionResend},
	}
	for _, s := range sub {
		action := s.action
		cmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return c.printNotice(c.coord.Perform(cmd.Context(), id, action))
			},
		})
	}
	return cmd
}
