package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"prompt2web_server/internal/export"
	"prompt2web_server/internal/filetree"
	"prompt2web_server/internal/generation"
	"prompt2web_server/internal/preview"
	"prompt2web_server/internal/tui"
	"prompt2web_server/internal/users"
)

var (
	promptText  string
	previewPath string
	projectDir  string
	planName    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a website from a prompt in the terminal",
	Long: `Runs analysis, planning and synthesis locally against the configured providers,
then writes the composited preview page and, optionally, the project files.

Example:
  prompt2web generate --prompt "A portfolio for a landscape photographer"
  prompt2web generate --prompt "Bakery landing page" --dir ./bakery --out bakery.html`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "Description of the website to build")
	generateCmd.Flags().StringVarP(&previewPath, "out", "o", "preview.html", "File to write the composited preview to")
	generateCmd.Flags().StringVarP(&projectDir, "dir", "d", "", "Directory to write the project files to")
	generateCmd.Flags().StringVar(&planName, "plan", users.PlanFree, "Plan used for the quota check")
	_ = generateCmd.MarkFlagRequired("prompt")

	RootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	orchestrator := generation.New(newGenerator(cfg, logger), nil,
		generation.WithLogger(logger),
		generation.WithProgressInterval(cfg.ProgressInterval))

	events, unsubscribe := orchestrator.Subscribe()
	defer unsubscribe()

	caller := generation.Caller{UID: "cli", Plan: planName}
	if _, err := orchestrator.Start(cmd.Context(), caller, promptText); err != nil {
		return err
	}

	view := tui.New(orchestrator, events)
	if _, err := tea.NewProgram(view).Run(); err != nil {
		orchestrator.Stop()
		return fmt.Errorf("progress view failed: %w", err)
	}

	if err := orchestrator.Wait(context.Background()); err != nil {
		if errors.Is(err, generation.ErrCancelled) {
			fmt.Println(generation.LabelStopped)
			return nil
		}
		var runErr *generation.RunError
		if errors.As(err, &runErr) && runErr.Kind == generation.ErrorKindParse {
			if raw := orchestrator.Snapshot().Raw; raw != "" {
				fmt.Printf("Model output started with:\n%s\n", raw)
			}
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	project := orchestrator.Snapshot().Project
	fmt.Printf("\n%s: %s\n\n", project.ProjectName, project.Description)
	filetree.Walk(filetree.Build(project.Files), func(node *filetree.Node, depth int) {
		name := node.Name
		if node.Kind == filetree.KindFolder {
			name += "/"
		}
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), name)
	})

	writer := export.NewWriter(".", logger)
	target, err := writer.WriteDocument(previewPath, preview.Compose(project, false))
	if err != nil {
		return err
	}
	fmt.Printf("\nPreview written to %s\n", target)

	if projectDir != "" {
		if err := export.NewWriter(projectDir, logger).WriteProject(project); err != nil {
			return err
		}
		fmt.Printf("Project files written to %s\n", projectDir)
	}
	return nil
}
