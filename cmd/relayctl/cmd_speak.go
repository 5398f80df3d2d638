package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/tts"
	"channel-relay/internal/usecase"
)

var (
	speakPreset     string
	speakEncoding   string
	speakFileName   string
	speakNoMetadata bool
)

func init() {
	rootCmd.AddCommand(speakCmd, voicesCmd)
	speakCmd.Flags().StringVar(&speakPreset, "preset", "", "voice preset, see relayctl voices")
	speakCmd.Flags().StringVar(&speakEncoding, "encoding", "MP3", "audio encoding: MP3, OGG_OPUS, LINEAR16, MULAW or ALAW")
	speakCmd.Flags().StringVar(&speakFileName, "file-name", "", "object file name")
	speakCmd.Flags().BoolVar(&speakNoMetadata, "no-metadata", false, "skip saving audio metadata")
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize text and upload the audio",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, err := build(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		in := usecase.SpeechInput{
			Text:        strings.Join(args, " "),
			VoicePreset: speakPreset,
			AudioConfig: domain.AudioConfig{AudioEncoding: strings.ToUpper(speakEncoding)},
			FileName:    speakFileName,
		}
		if speakNoMetadata {
			save := false
			in.SaveMetadata = &save
		}
		res, err := a.Speech.TextToAudio(ctx, in)
		if err != nil {
			if uerr := usecase.AsError(err); uerr.Message != "" {
				return fmt.Errorf("%s: %w", uerr.Message, err)
			}
			return err
		}
		return printJSON(res)
	},
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voice presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range tts.PresetNames() {
			v := tts.Preset(name)
			fmt.Printf("%-12s %-22s %-8s %s\n", name, v.Name, v.LanguageCode, v.SSMLGender)
		}
		return nil
	},
}
