package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/chime/internal/config"
	"github.com/jmylchreest/chime/internal/core"
	"github.com/jmylchreest/chime/internal/store"
)

var muteOpts struct {
	duration string
	reason   string
}

var muteCmd = &cobra.Command{
	Use:   "mute REF",
	Short: "Mute a conversation or channel",
	Long: `Mute a conversation or channel. Muted refs show no visual notification;
sound is still decided by the sound rules. chimed picks up changes to the
mute list immediately.

Examples:
  # Mute until unmuted
  chime mute conv-42

  # Mute for two hours
  chime mute chan-7 --for 2h

  # Mute for a week
  chime mute chan-7 --for 1w`,
	Args: cobra.ExactArgs(1),
	RunE: runMute,
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute REF",
	Short: "Unmute a conversation or channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnmute,
}

var mutesCmd = &cobra.Command{
	Use:   "mutes",
	Short: "List active mutes",
	Args:  cobra.NoArgs,
	RunE:  runMutes,
}

func init() {
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(unmuteCmd)
	rootCmd.AddCommand(mutesCmd)

	muteCmd.Flags().StringVar(&muteOpts.duration, "for", "",
		"Mute duration (e.g., 30m, 2h, 7d, 1w); empty mutes until unmuted")
	muteCmd.Flags().StringVar(&muteOpts.reason, "reason", "cli", "Reason recorded with the mute")
}

func runMute(cmd *cobra.Command, args []string) error {
	dur, err := core.ParseDuration(muteOpts.duration)
	if err != nil {
		return err
	}

	table, err := store.OpenMuteTable(config.MutesPath())
	if err != nil {
		return fmt.Errorf("failed to load mutes: %w", err)
	}

	now := time.Now()
	var until time.Time
	if dur > 0 {
		until = now.Add(dur)
	}

	if err := table.Mute(args[0], until, muteOpts.reason, now); err != nil {
		return fmt.Errorf("failed to mute %s: %w", args[0], err)
	}

	if until.IsZero() {
		fmt.Printf("Muted %s until unmuted\n", args[0])
	} else {
		fmt.Printf("Muted %s until %s (%s)\n", args[0], until.Format(time.DateTime), humanize.Time(until))
	}
	return nil
}

func runUnmute(cmd *cobra.Command, args []string) error {
	table, err := store.OpenMuteTable(config.MutesPath())
	if err != nil {
		return fmt.Errorf("failed to load mutes: %w", err)
	}

	removed, err := table.Unmute(args[0])
	if err != nil {
		return fmt.Errorf("failed to unmute %s: %w", args[0], err)
	}

	if removed {
		fmt.Printf("Unmuted %s\n", args[0])
	} else {
		fmt.Printf("%s was not muted\n", args[0])
	}
	return nil
}

func runMutes(cmd *cobra.Command, args []string) error {
	table, err := store.OpenMuteTable(config.MutesPath())
	if err != nil {
		return fmt.Errorf("failed to load mutes: %w", err)
	}

	now := time.Now()
	if _, err := table.Prune(now); err != nil {
		logger.Warn("failed to prune expired mutes", "error", err)
	}

	mutes := table.List(now)
	if len(mutes) == 0 {
		fmt.Println("No active mutes")
		return nil
	}

	for _, m := range mutes {
		fmt.Printf("%-24s %s\n", m.Ref, describeMute(m.MuteEntry))
	}
	return nil
}

// describeMute formats the mute window in relative terms.
func describeMute(e store.MuteEntry) string {
	muted := "muted " + humanize.Time(time.Unix(e.MutedAt, 0))
	if e.Reason != "" {
		muted += " by " + e.Reason
	}
	if e.Until == 0 {
		return muted + ", until unmuted"
	}
	return muted + ", expires " + humanize.Time(time.Unix(e.Until, 0))
}
