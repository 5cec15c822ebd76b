package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/model"
)

var playOpts struct {
	kind   string
	volume int
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the sound configured for a kind",
	Long: `Play the sound configured for a notification kind, bypassing the
routing rules and the debounce. Useful to check sound files and volume.

Examples:
  chime play --kind dm_message
  chime play --kind system --volume 30`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringVarP(&playOpts.kind, "kind", "k", string(model.KindSystem),
		fmt.Sprintf("Notification kind (%s)", kindList()))
	playCmd.Flags().IntVar(&playOpts.volume, "volume", -1,
		"Volume 0-100 (default: configured volume)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	// Unknown kinds still resolve to the default sound
	kind := model.Kind(playOpts.kind)
	if !kind.Valid() {
		logger.Warn("unknown kind, using default sound", "kind", playOpts.kind)
	}

	volume := cfg.Audio.Volume
	if playOpts.volume >= 0 {
		volume = playOpts.volume
	}
	volume = model.AudioSettings{Volume: volume}.ClampedVolume()
	if volume == 0 {
		return fmt.Errorf("volume is zero, nothing to play")
	}

	asset := audio.NewAssetTable(cfg.SoundPaths(), cfg.Audio.Sounds.Default).Resolve(kind)

	player := audio.NewBeepPlayer(logger)
	defer player.Close()

	length, err := player.Length(asset)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", asset, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Audio.PlayTimeout.Duration()+time.Second)
	defer cancel()
	if err := player.Play(ctx, asset, float64(volume)/100.0); err != nil {
		return fmt.Errorf("failed to play %s: %w", asset, err)
	}

	fmt.Printf("Playing %s (%s) at volume %d\n", asset, length.Round(time.Millisecond), volume)
	time.Sleep(length + 50*time.Millisecond)
	return nil
}
