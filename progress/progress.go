// Package progress draws a bar counting processed mods. A bar is only
// drawn when a writer was attached to the context with WithWriter.
package progress

import (
	"context"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type writerKey struct{}

// WithWriter returns a context that draws progress bars to w.
func WithWriter(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

// Bar counts mods out of a known total. The zero value ignores all updates.
type Bar struct {
	bar   *pb.ProgressBar
	title string
}

// Count starts a bar for total mods titled title.
func Count(ctx context.Context, total int, title string) *Bar {
	w, ok := ctx.Value(writerKey{}).(io.Writer)
	if !ok || total <= 0 {
		return &Bar{}
	}
	bar := pb.NewOptions(total,
		pb.OptionSetDescription(title),
		pb.OptionSetWriter(w),
		pb.OptionSetWidth(20),
		pb.OptionThrottle(65*time.Millisecond),
		pb.OptionShowCount(),
		pb.OptionSetPredictTime(false),
		pb.OptionClearOnFinish(),
		pb.OptionFullWidth(),
		pb.OptionSetTheme(pb.Theme{Saucer: "#", SaucerPadding: "-", BarStart: "[", BarEnd: "]"}),
	)
	bar.RenderBlank()
	return &Bar{bar: bar, title: title}
}

// On shows the file name of the mod being processed.
func (b *Bar) On(name string) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(b.title + ": " + name)
}

// Tick marks one mod done.
func (b *Bar) Tick() {
	if b.bar == nil {
		return
	}
	b.bar.Add(1)
}

func (b *Bar) Close() {
	if b.bar == nil {
		return
	}
	b.bar.Close()
}
