package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your profile",
	}

	var (
		in       api.ProfileUpdate
		guardian api.Guardian
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the given fields and keep the rest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(); err != nil {
				return err
			}
			upd := api.UpdateFrom(c.sess.User().Profile)
			changed := cmd.Flags().Changed
			strs := []struct {
				flag string
				dst  *string
				src  string
			}{
				{"name", &upd.DisplayName, in.DisplayName},
				{"marital-status", &upd.MaritalStatus, in.MaritalStatus},
				{"education", &upd.Education, in.Education},
				{"profession", &upd.Profession, in.Profession},
				{"caste", &upd.Caste, in.Caste},
				{"religion", &upd.Religion, in.Religion},
				{"village", &upd.Location.Village, in.Location.Village},
				{"tehsil", &upd.Location.Tehsil, in.Location.Tehsil},
				{"district", &upd.Location.District, in.Location.District},
				{"state", &upd.Location.State, in.Location.State},
				{"guardian-name", &upd.Guardian.Name, guardian.Name},
				{"guardian-contact", &upd.Guardian.Contact, guardian.Contact},
				{"interests", &upd.Interests, in.Interests},
				{"about", &upd.About, in.About},
			}
			for _, s := range strs {
				if changed(s.flag) {
					*s.dst = s.src
				}
			}
			if changed("divorce-finalized") {
				upd.DivorceFinalized = in.DivorceFinalized
			}

			if _, err := c.client.UpdateProfile(cmd.Context(), upd); err != nil {
				return describe(err)
			}
			if err := c.sess.RefreshUser(cmd.Context()); err != nil {
				c.logger.Warn("profile saved but reload failed", zap.Error(err))
			}
			c.println(successStyle.Render("✓ Profile updated."))
			return nil
		},
	}
	f := set.Flags()
	f.StringVar(&in.DisplayName, "name", "", "display name")
	f.StringVar(&in.MaritalStatus, "marital-status", "", "never_married, divorced, widowed or separated")
	f.BoolVar(&in.DivorceFinalized, "divorce-finalized", false, "divorce is final")
	f.StringVar(&in.Education, "education", "", "education level")
	f.StringVar(&in.Profession, "profession", "", "profession")
	f.StringVar(&in.Caste, "caste", "", "caste")
	f.StringVar(&in.Religion, "religion", "", "religion")
	f.StringVar(&in.Location.Village, "village", "", "village")
	f.StringVar(&in.Location.Tehsil, "tehsil", "", "tehsil")
	f.StringVar(&in.Location.District, "district", "", "district")
	f.StringVar(&in.Location.State, "state", "", "state")
	f.StringVar(&guardian.Name, "guardian-name", "", "guardian name, shown after acceptance")
	f.StringVar(&guardian.Contact, "guardian-contact", "", "guardian phone, shown after acceptance")
	f.StringVar(&in.Interests, "interests", "", "hobbies and interests")
	f.StringVar(&in.About, "about", "", "a few words about yourself")

	cmd.AddCommand(set)
	return cmd
}

func (c *cli) photoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage your profile photo",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <file>",
			Short: "Upload a JPEG or PNG photo",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.requireAuth(); err != nil {
					return err
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				ref, err := c.client.UploadPhoto(cmd.Context(), filepath.Base(args[0]), f)
				if err != nil {
					return describe(err)
				}
				_ = c.sess.RefreshUser(cmd.Context())
				c.println(successStyle.Render(fmt.Sprintf("✓ Photo saved: %s", api.ResolveImageURL(c.client.BaseURL(), ref))))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Remove your profile photo",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.requireAuth(); err != nil {
					return err
				}
				if err := c.client.RemovePhoto(cmd.Context()); err != nil {
					return describe(err)
				}
				_ = c.sess.RefreshUser(cmd.Context())
				c.println("Photo removed.")
				return nil
			},
		},
	)
	return cmd
}
