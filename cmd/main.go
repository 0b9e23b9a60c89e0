package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"readaloud/internal/app"
	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/config"
)

func main() {
	var (
		a          *app.App
		configFile string
	)

	rootCmd := &cobra.Command{
		Use:   "readaloud",
		Short: "🔊 Read-aloud narration for kids' lessons",
		Long: `
┌─────────────────────────────────────┐
│  🔊 Welcome to ReadAloud! 📚       │
│  Lessons read aloud for kids 👶✨  │
└─────────────────────────────────────┘

ReadAloud narrates slide decks and text with a child-friendly voice,
using whatever speech engine your computer has.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := config.New(configFile)
			if err := v.BindPFlag("tts.type", cmd.Root().PersistentFlags().Lookup("engine")); err != nil {
				return err
			}
			if err := v.BindPFlag("logging.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return err
			}

			var err error
			a, err = app.New(v)
			if err != nil {
				return err
			}

			// Setup signal handling for graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				a.Close()
				fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Keep learning! 🌟"))
				os.Exit(0)
			}()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			a.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default $HOME/.readaloud/readaloud.yaml)")
	rootCmd.PersistentFlags().StringP("engine", "e", "auto", "Speech engine: auto, espeak, say, googleclassic, mock")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	sayCmd := &cobra.Command{
		Use:   "say [text]",
		Short: "🗣️ Read some text aloud",
		Long:  "Narrate the given text and wait until it has been read",
		Args:  cobra.MinimumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { a.Say(cmd, args) },
	}

	deckCmd := &cobra.Command{
		Use:   "deck [file]",
		Short: "📖 Present a slide deck",
		Long:  "Show a slide deck with one narration button per slide. Without a file the sample deck is used",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { a.PlayDeck(cmd, args) },
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List available voices",
		Long:  "Show the engine's voices ranked for young listeners",
		Run:   func(cmd *cobra.Command, args []string) { a.ListVoices(cmd, args) },
	}

	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "⚙️ List speech engines",
		Long:  "Show the speech engines that can run on this computer",
		Run:   func(cmd *cobra.Command, args []string) { a.ListEngines(cmd, args) },
	}

	app.AddSpeakFlags(sayCmd)
	app.AddSpeakFlags(deckCmd)
	voicesCmd.Flags().Duration("wait", 5*time.Second, "How long to wait for the engine to list its voices")

	rootCmd.AddCommand(sayCmd, deckCmd, voicesCmd, enginesCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
