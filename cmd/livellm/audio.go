package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livellm/livellm-go"
)

func (a *app) speakCmd() *cobra.Command {
	var (
		model  string
		voice  string
		format string
		out    string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "speak <text...>",
		Short: "Convert text to speech",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			text := strings.Join(args, " ")

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, createErr := os.Create(out)
				if createErr != nil {
					return fmt.Errorf("create output: %w", createErr)
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			if !stream {
				audio, err := a.client.Speak(cmd.Context(), model, text, voice, format, nil)
				if err != nil {
					return err
				}
				_, err = w.Write(audio)
				return err
			}

			for chunk, err := range a.client.SpeakStream(cmd.Context(), model, text, voice, format, nil) {
				if err != nil {
					return err
				}
				if _, err := w.Write(chunk); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "speech model (required)")
	cmd.Flags().StringVar(&voice, "voice", "alloy", "voice name")
	cmd.Flags().StringVar(&format, "format", "mp3", "audio output format")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&stream, "stream", false, "write audio as it is generated")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) transcribeCmd() *cobra.Command {
	var (
		model    string
		language string
	)
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			mimeType := detectMimeType(path, data)
			if !strings.HasPrefix(mimeType, "audio/") && !strings.HasPrefix(mimeType, "video/") {
				return errors.New("input does not look like an audio file: " + mimeType)
			}

			file := livellm.AudioFile{Name: filepath.Base(path), Content: data, ContentType: mimeType}
			resp, err := a.client.Transcribe(cmd.Context(), model, file, language, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			if resp.Language != "" {
				dimColor.Fprintf(cmd.ErrOrStderr(), "language: %s\n", resp.Language)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "transcription model (required)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language hint, e.g. en")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
