package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
	"github.com/kenhendricks00/ai-companion/internal/speech"
)

var (
	timelineDuration float64
	timelineWPM      float64
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <text>",
	Short: "Print the viseme timeline generated for an utterance",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTimeline,
}

func init() {
	timelineCmd.Flags().Float64VarP(&timelineDuration, "duration", "d", 0, "utterance duration in ms (estimated from the text when 0)")
	timelineCmd.Flags().Float64Var(&timelineWPM, "wpm", speech.DefaultWordsPerMinute, "speaking rate used for the estimate")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	ms := timelineDuration
	if ms <= 0 {
		ms = float64(speech.EstimateDuration(text, timelineWPM).Milliseconds())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(avatar3d.GenerateTimeline(text, ms))
}
