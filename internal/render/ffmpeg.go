package render

import (
	"context"
	"fmt"
	"strings"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
)

// FFmpeg draws the template's cards over a solid background with lavfi and
// drawtext. It needs nothing beyond ffmpeg itself.
type FFmpeg struct {
	Runner shell.Runner
	Cfg    config.RenderConfig
}

func (f *FFmpeg) Name() string { return "ffmpeg" }

func (f *FFmpeg) Render(ctx context.Context, job Job) error {
	source := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%.3f",
		job.Template.Background, f.Cfg.Width, f.Cfg.Height, f.Cfg.FPS, job.DurationSec)

	args := []string{"-y",
		"-f", "lavfi",
		"-i", source,
	}
	if vf := f.filter(job.Cards); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args,
		"-t", fmt.Sprintf("%.3f", job.DurationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		job.OutPath,
	)
	if _, err := f.Runner.Run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("ffmpeg render: %w", err)
	}
	return nil
}

// filter chains one drawtext per card
func (f *FFmpeg) filter(cards []Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, fmt.Sprintf(
			"drawtext=font='%s':text='%s':fontsize=%d:fontcolor=%s:x=(w-text_w)/2:y=h*%.3f:enable='between(t,%.3f,%.3f)'",
			escapeDrawtext(f.Cfg.Font), escapeDrawtext(c.Text), c.FontSize, c.Color, c.Y, c.Start, c.End,
		))
	}
	return strings.Join(parts, ",")
}

// escapeDrawtext makes arbitrary text safe inside a quoted drawtext value.
// Straight apostrophes cannot be escaped inside quotes, so they become ’.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\\\`,
	`'`, "’",
	`:`, `\:`,
	`%`, `\%`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeDrawtext(s string) string {
	return drawtextEscaper.Replace(s)
}
