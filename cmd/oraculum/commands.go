package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antinea2359/app-tarot/internal/adapters/llm/gemini"
	"github.com/antinea2359/app-tarot/internal/app"
	"github.com/antinea2359/app-tarot/internal/config"
	"github.com/antinea2359/app-tarot/internal/domain"
)

var (
	drawOut    string
	drawJSON   bool
	editIn     string
	editOut    string
	editPrompt string
)

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw a card and save its illustration",
	Long: `Draws a random card, prints its reading and writes the generated image.

The reading is also saved next to the image as <out>.json.`,
	RunE: runDraw,
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Transform a card image with a free-text instruction",
	RunE:  runEdit,
}

func init() {
	drawCmd.Flags().StringVarP(&drawOut, "out", "o", "oraculum-card.png", "output image path")
	drawCmd.Flags().BoolVar(&drawJSON, "json", false, "print the reading as JSON")

	editCmd.Flags().StringVarP(&editIn, "in", "i", "", "input image path (required)")
	editCmd.Flags().StringVarP(&editOut, "out", "o", "", "output image path (default: overwrite input)")
	editCmd.Flags().StringVarP(&editPrompt, "prompt", "p", "", "edit instruction (required)")
	_ = editCmd.MarkFlagRequired("in")
	_ = editCmd.MarkFlagRequired("prompt")
}

func newOracle(ctx context.Context) (*gemini.Client, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q", logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	oracle, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		HTTPClient: &http.Client{Timeout: cfg.LLMTimeout},
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return oracle, logger, nil
}

func runDraw(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	oracle, logger, err := newOracle(ctx)
	if err != nil {
		return err
	}

	s := app.NewSession(ctx, "cli", oracle, logger)
	done, err := s.RequestDraw()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "🔮 Divination en cours...")
	<-done

	v := s.View()
	img, ok := v.Artifact()
	if v.Error != "" || !ok {
		if v.Reading != nil {
			printReading(cmd, *v.Reading)
		}
		msg := v.Error
		if msg == "" {
			msg = domain.FallbackMessage
		}
		return errors.New(msg)
	}

	out := withExt(drawOut, img.ContentType())
	if err := os.WriteFile(out, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	raw, err := json.MarshalIndent(v.Reading, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	if err := os.WriteFile(out+".json", raw, 0o644); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}

	if drawJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	} else {
		printReading(cmd, *v.Reading)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Image: %s\n", out)
	return nil
}

func runEdit(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(editPrompt) == "" {
		return domain.ErrEmptyPrompt
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	oracle, _, err := newOracle(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(editIn)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	current := domain.ImageArtifact{MIMEType: mime.TypeByExtension(filepath.Ext(editIn)), Data: data}
	if i := strings.IndexByte(current.MIMEType, ';'); i >= 0 {
		current.MIMEType = current.MIMEType[:i]
	}

	img, err := oracle.EditImage(ctx, current, editPrompt)
	if err != nil {
		return errors.New(domain.EditFailurePrefix + domain.Message(err))
	}

	out := editOut
	if out == "" {
		out = editIn
	}
	if err := os.WriteFile(out, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Image: %s\n", out)
	return nil
}

func printReading(cmd *cobra.Command, r domain.Reading) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n\n", r.Name)
	fmt.Fprintf(w, "Signification\n  %s\n\n", r.Meaning)
	fmt.Fprintf(w, "✨ Message Spirituel\n  \"%s\"\n", r.SpiritualMessage)
}

var preferredExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// withExt swaps the extension of path for one matching the media type.
func withExt(path, mimeType string) string {
	cur := filepath.Ext(path)
	exts, _ := mime.ExtensionsByType(mimeType)
	for _, e := range exts {
		if strings.EqualFold(e, cur) {
			return path
		}
	}
	ext, ok := preferredExt[mimeType]
	if !ok {
		if len(exts) == 0 {
			return path
		}
		ext = exts[0]
	}
	return strings.TrimSuffix(path, cur) + ext
}
