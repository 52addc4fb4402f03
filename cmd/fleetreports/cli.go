package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/render"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/selection"
	"fleet-report-builder/internal/timewindow"
)

func trackersCmd() *cobra.Command {
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "trackers",
		Short: "List trackers by group",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			client := newClient(cfg, log)
			ctx := cmd.Context()

			trackers, err := client.ListTrackers(ctx, sessionKey)
			if err != nil {
				return err
			}
			groups, err := client.ListTrackerGroups(ctx, sessionKey)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tID\tLABEL\tENGINE HOURS")
			for _, g := range selection.GroupedView(trackers, groups) {
				for _, t := range g.Trackers {
					fmt.Fprintf(w, "%s\t%d\t%s\t%t\n", g.Group.Title, t.ID, t.Label, t.HasEngineHours)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", "", "Session key")
	cmd.MarkFlagRequired("session")
	return cmd
}

func reportsCmd() *cobra.Command {
	var sessionKey, ownerID string

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List previously generated reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			records, err := newClient(cfg, log).ListReports(cmd.Context(), ownerID, sessionKey)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tTITLE\tFORMAT\tGENERATED")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.ReportType, r.ReportTitle, r.FileFormat, r.GeneratedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", "", "Session key")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner (user) id")
	cmd.MarkFlagRequired("session")
	cmd.MarkFlagRequired("owner")
	return cmd
}

type generateOptions struct {
	kind       string
	trackers   string
	from, to   string
	startTime  string
	endTime    string
	timezone   string
	days       int
	title      string
	sessionKey string
	ownerID    string
	format     string
	out        string
}

func generateCmd() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report and save it to a file",
		Example: `  fleetreports generate --type engineHours --trackers 1,2 --from 2024-05-01 --to 2024-05-07 \
    --start-time 08:00 --end-time 18:00 --tz Europe/London --session KEY --owner customer_123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if opts.timezone == "" {
				opts.timezone = cfg.Reports.DefaultTimezone
			}
			if opts.format == "" {
				opts.format = string(cfg.Reports.DefaultFormat)
			}
			if opts.days == 0 {
				opts.days = cfg.Reports.DefaultDaysWithoutSignal
			}

			submission, err := opts.submission()
			if err != nil {
				return err
			}

			client := newClient(cfg, log)
			registry := artifact.NewRegistry(time.Minute)
			dispatcher := dispatch.New(report.NewCatalog(), client, registry, render.NewRenderer(), log).
				WithDirectory(client)
			attempt := dispatcher.Submit(cmd.Context(), report.Kind(opts.kind), submission)
			if !attempt.Succeeded() {
				return attempt.Err
			}
			defer registry.Release(attempt.Artifact)

			out := opts.out
			if out == "" {
				out = attempt.Artifact.FileName
			}
			if err := os.WriteFile(out, attempt.Artifact.Bytes, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s)\n", out, attempt.Artifact.Size, attempt.Artifact.MimeType)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "type", "", "Report type: checkins, engineHours or staleGPS")
	f.StringVar(&opts.trackers, "trackers", "", "Comma separated tracker ids")
	f.StringVar(&opts.from, "from", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&opts.to, "to", "", "End date (YYYY-MM-DD)")
	f.StringVar(&opts.startTime, "start-time", "00:00", "Start time of day (HH:MM)")
	f.StringVar(&opts.endTime, "end-time", "23:59", "End time of day (HH:MM)")
	f.StringVar(&opts.timezone, "tz", "", "IANA timezone of the dates (default from config)")
	f.IntVar(&opts.days, "days", 0, "Days without signal, stale GPS only (default from config)")
	f.StringVar(&opts.title, "title", "", "Report title")
	f.StringVar(&opts.sessionKey, "session", "", "Session key")
	f.StringVar(&opts.ownerID, "owner", "", "Owner (user) id")
	f.StringVar(&opts.format, "format", "", "Output format for JSON results: pdf or xlsx")
	f.StringVarP(&opts.out, "out", "o", "", "Output file (default <title>.<ext>)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("session")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func (o generateOptions) submission() (report.Submission, error) {
	ids, err := parseIDs(o.trackers)
	if err != nil {
		return report.Submission{}, err
	}
	startMinutes, err := timewindow.ParseClock(o.startTime)
	if err != nil {
		return report.Submission{}, fmt.Errorf("--start-time: %w", err)
	}
	endMinutes, err := timewindow.ParseClock(o.endTime)
	if err != nil {
		return report.Submission{}, fmt.Errorf("--end-time: %w", err)
	}
	format, ok := model.ParseFormat(strings.ToLower(o.format))
	if !ok {
		return report.Submission{}, fmt.Errorf("--format: unsupported format %q", o.format)
	}

	return report.Submission{
		SessionKey: o.sessionKey,
		OwnerID:    o.ownerID,
		TrackerIDs: ids,
		Window: timewindow.Window{
			StartDate:    o.from,
			EndDate:      o.to,
			StartMinutes: timewindow.QuantizeTimeOfDay(startMinutes),
			EndMinutes:   timewindow.QuantizeTimeOfDay(endMinutes),
			Timezone:     o.timezone,
		},
		DaysWithoutSignal: o.days,
		Title:             o.title,
		Format:            format,
	}, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--trackers: invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
