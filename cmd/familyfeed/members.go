package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/database"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/roster"
	"github.com/dukerupert/familyfeed/internal/store"
)

func newMembersCmd(opts *rootOptions) *cobra.Command {
	var (
		search   string
		sortName string
		upcoming int
		count    bool
	)
	cmd := &cobra.Command{
		Use:   "members <username>",
		Short: "List a user's family members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := roster.ParseSortOption(sortName)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			user, _, err := store.NewUserStore(db).GetCredentials(ctx, args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no user named %q", args[0])
			}
			ac := auth.AuthContext{UserID: user.ID, Username: user.Username}
			records := store.NewFamilyMemberStore(db)

			if count {
				n, err := records.CountByOwner(ctx, user.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s owns %d family members\n", user.Username, n)
				return nil
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			syncer := roster.New(records, nil, cfg.RosterConfig(), logger)
			members, err := syncer.FetchAll(ctx, ac)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if upcoming > 0 {
				printUpcoming(out, syncer.Upcoming(upcoming))
				return nil
			}
			printMembers(out, roster.View(members, search, sort))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only members whose name or relationship contains this text")
	cmd.Flags().StringVar(&sortName, "sort", "name", "name, relationship or age")
	cmd.Flags().IntVar(&upcoming, "upcoming", 0, "show important dates in the next N days instead")
	cmd.Flags().BoolVar(&count, "count", false, "only print how many family members the user owns")
	return cmd
}

func printMembers(w io.Writer, members []model.FamilyMember) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRELATIONSHIP\tBORN\tDATES\tCHART")
	for _, m := range members {
		chart := "-"
		if m.BirthChart != nil {
			chart = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.Name, m.Relationship, m.DateOfBirth.Format(time.DateOnly), len(m.ImportantDates), chart)
	}
	tw.Flush()
}

func printUpcoming(w io.Writer, upcoming []roster.MemberDates) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tCATEGORY\tDESCRIPTION")
	for _, md := range upcoming {
		for _, d := range md.Dates {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Date.Format(time.DateOnly), md.Member.Name, d.Category, d.Description)
		}
	}
	tw.Flush()
}
