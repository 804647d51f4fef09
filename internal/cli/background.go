package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adibhanna/focusflow/internal/background"
	"github.com/adibhanna/focusflow/internal/logging"
	"github.com/adibhanna/focusflow/internal/models"
)

var backgroundOpts struct {
	aspectRatio string
	format      string
	quality     int
	safety      int
}

var backgroundCmd = &cobra.Command{
	Use:   "background <prompt...>",
	Short: "Generate a background image for the timer",
	Long: `Generates an image from a text prompt and shows it on the timer screen.

Requires REPLICATE_API_TOKEN. When REDIS_ADDR is set, identical prompts are
served from the cache instead of generating a new image.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBackground,
}

var backgroundClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the current background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.SetBackground(nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Background cleared")
		return nil
	},
}

func init() {
	f := backgroundCmd.Flags()
	f.StringVar(&backgroundOpts.aspectRatio, "aspect", "", "Aspect ratio, e.g. 16:9")
	f.StringVar(&backgroundOpts.format, "format", "", "Output format (webp, png, jpg)")
	f.IntVar(&backgroundOpts.quality, "quality", 0, "Output quality 1-100")
	f.IntVar(&backgroundOpts.safety, "safety", 0, "Safety tolerance 1-6")

	backgroundCmd.AddCommand(backgroundClearCmd)
	rootCmd.AddCommand(backgroundCmd)
}

func runBackground(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if err := cfg.RequireReplicate(); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	prompt := strings.Join(args, " ")
	fmt.Fprintln(cmd.OutOrStdout(), "Generating background...")

	res, err := newService(cfg, client, nil).Generate(ctx, background.Request{
		Prompt:          prompt,
		AspectRatio:     backgroundOpts.aspectRatio,
		OutputFormat:    backgroundOpts.format,
		OutputQuality:   backgroundOpts.quality,
		SafetyTolerance: backgroundOpts.safety,
	})
	if err != nil {
		return fmt.Errorf("failed to generate background image: %w", err)
	}

	bg := &models.Background{
		Prompt:      strings.TrimSpace(prompt),
		ImageURL:    res.ImageURL,
		GeneratedAt: time.Now(),
	}
	if err := store.SetBackground(bg); err != nil {
		return err
	}

	suffix := ""
	if res.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Background set%s: %s\n", suffix, res.ImageURL)
	return nil
}
