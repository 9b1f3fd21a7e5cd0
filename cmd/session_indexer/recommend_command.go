package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/observability"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
	embedded "github.com/jonathan/session-indexer/schemas"
)

const dateFlagLayout = "2006-01-02"

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var (
		profilePath string
		profile     types.Profile
		kind        string
		filter      store.Query
		filterType  string
		since       string
		until       string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank stored sessions against a coach or student profile",
		Long: "Scores every stored session matching the filters against the profile and groups the " +
			"result into must-watch, highly-relevant, similar-case, parent-management and skill-building buckets. " +
			"The profile comes from --profile or the profile flags; an empty profile scores against neutral defaults.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profilePath != "" {
				loaded, err := loadProfile(profilePath)
				if err != nil {
					return err
				}
				profile = *loaded
			} else if kind != "" {
				profile.Kind = types.ProfileKind(kind)
			}

			if filterType != "" {
				st, ok := types.ParseSessionType(filterType)
				if !ok {
					return fmt.Errorf("unknown session type %q", filterType)
				}
				filter.SessionType = st
			}
			var err error
			if filter.Since, err = parseDateFlag("since", since); err != nil {
				return err
			}
			if filter.Until, err = parseDateFlag("until", until); err != nil {
				return err
			}

			e, err := ctx.enricher()
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc, err := ctx.recommender(st, e)
			if err != nil {
				return err
			}
			set, err := svc.Recommend(cmd.Context(), &profile, filter)
			if err != nil {
				return err
			}
			checkOutput(cmd, embedded.RecommendationSet, set)

			if ctx.jsonOutput() {
				return writeJSON(cmd, set)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintRecommendations(set)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "JSON file holding the target profile")
	cmd.Flags().StringVar(&kind, "kind", "", "Profile kind: coach or student")
	cmd.Flags().StringVar(&profile.Coach, "coach", "", "Target coach")
	cmd.Flags().StringVar(&profile.Student, "student", "", "Target student")
	cmd.Flags().StringVar(&profile.Grade, "grade", "", "Target grade level")
	cmd.Flags().StringVar(&profile.Track, "track", "", "Target subject track")
	cmd.Flags().StringSliceVar(&profile.ChallengeTags, "challenge", nil, "Challenge tags (repeatable)")
	cmd.Flags().StringSliceVar(&profile.InterestTags, "interest", nil, "Interest tags (repeatable)")
	cmd.Flags().StringSliceVar(&profile.TargetSchools, "school", nil, "Target schools (repeatable)")
	cmd.Flags().IntVar(&profile.ProgramWeek, "week", 0, "Coach's current program week")
	cmd.Flags().BoolVar(&profile.InTraining, "in-training", false, "Treat the profile as a coach in onboarding")
	cmd.Flags().BoolVar(&profile.Struggling, "struggling", false, "Treat the profile as a struggling student")

	cmd.Flags().StringVar(&filter.Coach, "filter-coach", "", "Only consider sessions with this coach")
	cmd.Flags().StringVar(&filter.Student, "filter-student", "", "Only consider sessions with this student")
	cmd.Flags().StringVar(&filterType, "filter-type", "", "Only consider sessions of this type")
	cmd.Flags().StringVar(&since, "since", "", "Only consider sessions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only consider sessions on or before this date (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("profile", "coach")
	cmd.MarkFlagsMutuallyExclusive("profile", "student")

	return cmd
}

func loadProfile(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}
	return &p, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFlagLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", name, value)
	}
	return &t, nil
}
