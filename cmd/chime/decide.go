package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/config"
	"github.com/jmylchreest/chime/internal/daemon"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/output"
	"github.com/jmylchreest/chime/internal/store"
)

var decideOpts struct {
	kind     string
	ref      string
	account  string
	title    string
	focus    bool
	suppress bool
	play     bool
	record   bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one delivery decision and print it as JSON",
	Long: `Run one delivery decision against the current config and mute list.

Without --play the sound step is simulated and always succeeds, so the
output shows what chimed would decide on a fresh start.

Examples:
  # A DM arriving while the client is in the background
  chime decide --kind dm_message --ref conv-42

  # A mention while focused, actually playing the sound
  chime decide --kind channel_mention --focus --play`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideOpts.kind, "kind", "k", "",
		fmt.Sprintf("Notification kind (%s)", kindList()))
	decideCmd.Flags().StringVar(&decideOpts.ref, "ref", "", "Conversation or channel ref")
	decideCmd.Flags().StringVar(&decideOpts.account, "account", "", "Local account")
	decideCmd.Flags().StringVar(&decideOpts.title, "title", "", "Payload title")
	decideCmd.Flags().BoolVar(&decideOpts.focus, "focus", false, "The client window has focus")
	decideCmd.Flags().BoolVar(&decideOpts.suppress, "suppress-when-unfocused", false,
		"Override the per-kind background suppression default")
	decideCmd.Flags().BoolVar(&decideOpts.play, "play", false, "Play the sound on this machine")
	decideCmd.Flags().BoolVar(&decideOpts.record, "record", false, "Append the decision to the journal")
	_ = decideCmd.MarkFlagRequired("kind")
}

func runDecide(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(decideOpts.kind)
	if err != nil {
		return err
	}

	var payload model.Payload
	if decideOpts.title != "" {
		payload = model.Payload{"title": decideOpts.title}
	}
	event, err := model.NewEvent(kind, decideOpts.ref, payload)
	if err != nil {
		return err
	}
	event = event.WithAccount(decideOpts.account)

	mutes, err := store.OpenMuteTable(config.MutesPath())
	if err != nil {
		return fmt.Errorf("failed to load mutes: %w", err)
	}

	var player audio.Player = simulatedPlayer{}
	var beepPlayer *audio.BeepPlayer
	if decideOpts.play {
		beepPlayer = audio.NewBeepPlayer(logger)
		defer beepPlayer.Close()
		player = beepPlayer
	}

	deps := daemon.Deps{
		Sounds: audio.NewRegistry(player, logger),
		Mutes:  mutes,
		Logger: logger,
	}
	if decideOpts.record {
		journal, err := store.OpenJournal(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()
		deps.Journal = journal
	}

	dispatcher := daemon.NewDispatcher(cfg, deps)

	opts := daemon.DispatchOptions{HasFocus: &decideOpts.focus}
	if cmd.Flags().Changed("suppress-when-unfocused") {
		opts.SuppressWhenUnfocused = &decideOpts.suppress
	}

	decision, err := dispatcher.Dispatch(context.Background(), event, opts)
	if err != nil {
		return err
	}

	if err := output.NewJSONFormatter().FormatSingle(os.Stdout, decision); err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	if decision.SoundPlayed && beepPlayer != nil {
		waitForPlayback(beepPlayer, decision.Asset, kind)
	}
	return nil
}

// simulatedPlayer accepts every sound without touching the audio device.
type simulatedPlayer struct{}

func (simulatedPlayer) Play(ctx context.Context, _ audio.Asset, _ float64) error {
	return ctx.Err()
}

// waitForPlayback keeps the process alive until a queued sound has finished.
func waitForPlayback(player *audio.BeepPlayer, assetName string, kind model.Kind) {
	asset := audio.NewAssetTable(cfg.SoundPaths(), cfg.Audio.Sounds.Default).Resolve(kind)
	length, err := player.Length(asset)
	if err != nil {
		logger.Debug("unknown sound length", "asset", assetName, "error", err)
		return
	}
	time.Sleep(length + 50*time.Millisecond)
}

func kindList() string {
	names := make([]string, 0, len(model.Kinds()))
	for _, k := range model.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
