package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Emotion-reactive avatar animation core",
	Long: `companion drives a VRM humanoid from chat, speech and gesture input and
streams the resolved pose and expression frames to renderers over a websocket.

Configuration:
  The config file is looked up in:
  1. --config flag (explicit path)
  2. $HOME/.companion/config.yaml
  3. ./config.yaml (current directory)

Environment Variables:
  COMPANION_AVATAR_MODEL_PATH  - VRM model file or URL
  COMPANION_CHAT_BASE_URL      - OpenAI-compatible endpoint (Ollama by default)
  COMPANION_CHAT_MODEL         - chat model name
  COMPANION_FEED_ADDR          - feed server listen address`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.companion/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(timelineCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
