package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenhendricks00/ai-companion/internal/logging"
	"github.com/kenhendricks00/ai-companion/internal/model"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <model>",
	Short: "Show the humanoid bones and expressions a VRM model exposes",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print as JSON")
}

type modelReport struct {
	Source      string   `json:"source"`
	Version     string   `json:"version"`
	Nodes       int      `json:"nodes"`
	Bones       []string `json:"bones"`
	Expressions []string `json:"expressions"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	loader := model.NewLoader(nil, logging.NewNop().Zerolog())
	m, err := loader.LoadModel(ctx, args[0])
	if err != nil {
		return err
	}
	defer m.Dispose()

	report := modelReport{
		Source:      m.Source,
		Version:     m.Version,
		Nodes:       m.NodeCount(),
		Expressions: m.Expressions(),
	}
	for _, b := range m.Bones() {
		report.Bones = append(report.Bones, string(b))
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Model:       %s\n", report.Source)
	fmt.Printf("VRM version: %s\n", report.Version)
	fmt.Printf("Nodes:       %d\n", report.Nodes)
	fmt.Printf("Bones (%d):   %s\n", len(report.Bones), strings.Join(report.Bones, ", "))
	fmt.Printf("Expressions (%d): %s\n", len(report.Expressions), strings.Join(report.Expressions, ", "))
	return nil
}
