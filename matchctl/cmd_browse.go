package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gitea.kood.tech/saathi/matchmaking/client/discovery"
)

func (c *cli) browseCmd() *cobra.Command {
	var (
		f     discovery.Filters
		page  int
		limit int
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List member profiles, filtered and paged by the store",
		Long: `browse asks the store for one page of profiles matching the filters.
--search narrows the fetched page locally and hides paging.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(); err != nil {
				return err
			}
			b := discovery.NewBrowser(c.client,
				discovery.WithClock(c.now),
				discovery.WithPageSize(limit),
				discovery.WithLogger(c.logger))

			if err := f.Validate(); err != nil {
				var verr *discovery.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("check --%s: %s", flagFor(verr.Field), verr.Rule)
				}
				return err
			}

			// page first, then narrow the chosen page with the search
			ctx := cmd.Context()
			paged := f
			paged.Search = ""
			if err := b.Apply(ctx, paged); err != nil {
				return describe(err)
			}
			for b.Pagination().CurrentPage < page {
				moved, err := b.Next(ctx)
				if err != nil {
					return describe(err)
				}
				if !moved {
					break
				}
			}
			b.SetSearch(f.Search)

			visible := b.Visible()
			if len(visible) == 0 {
				c.println(mutedStyle.Render("No profiles match."))
			} else {
				rows := make([][]string, 0, len(visible))
				for _, p := range visible {
					rows = append(rows, []string{
						strconv.Itoa(p.ID),
						p.DisplayName,
						ageText(p.DateOfBirth, c.now()),
						orDash(locationText(p.Location)),
						orDash(p.Profession),
						c.coord.View(p.ID).State.String(),
					})
				}
				c.println(profileTable([]string{"ID", "NAME", "AGE", "LOCATION", "PROFESSION", "INTEREST"}, rows))
			}

			if b.ShowPagination() {
				pg := b.Pagination()
				c.println(mutedStyle.Render(fmt.Sprintf("Page %d of %d, %d profiles", pg.CurrentPage, pg.TotalPages, pg.TotalCount)))
			} else {
				c.println(mutedStyle.Render(fmt.Sprintf("%d matches for %q on this page", len(visible), strings.TrimSpace(f.Search))))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "name contains")
	fl.StringVar(&f.Location, "location", "", "village, tehsil, district or state contains")
	fl.StringVar(&f.Profession, "profession", "", "profession contains")
	fl.IntVar(&f.AgeFrom, "age-from", 0, "youngest age")
	fl.IntVar(&f.AgeTo, "age-to", 0, "oldest age")
	fl.StringVar(&f.Caste, "caste", "", "caste")
	fl.StringVar(&f.Religion, "religion", "", "religion")
	fl.StringVar(&f.Education, "education", "", "education level")
	fl.StringVar(&f.Search, "search", "", "narrow the fetched page by name, profession or location")
	fl.IntVar(&page, "page", 1, "page to show")
	fl.IntVar(&limit, "limit", 0, "profiles per page (store default when 0)")
	return cmd
}

// flagFor maps a filter field name to its flag.
func flagFor(field string) string {
	switch field {
	case "ageFrom":
		return "age-from"
	case "ageTo":
		return "age-to"
	}
	return field
}

func (c *cli) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <profile-id>",
		Short: "Show one profile and what you can do on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opened, notice := c.coord.Open(cmd.Context(), id)
			if !notice.OK() {
				return c.printNotice(notice)
			}
			c.println(c.profileCard(opened.Profile))
			if opened.View.Own {
				c.println(mutedStyle.Render("This is your profile."))
				return nil
			}
			c.println(labelStyle.Render("Interest") + opened.View.State.String())
			for _, btn := range opened.View.Buttons {
				c.println(fmt.Sprintf("  %s  matchctl interest %s %d", btn.Label, commandFor[btn.Action], id))
			}
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a profile id", s)
	}
	return id, nil
}
