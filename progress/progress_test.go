package progress

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWithoutWriter(t *testing.T) {
	b := Count(context.Background(), 3, "Downloading mods")
	assert.Nil(t, b.bar)
	// Updates on a detached bar are no-ops.
	b.On("examplemod.jar")
	b.Tick()
	b.Close()
}

func TestCountEmpty(t *testing.T) {
	var buf bytes.Buffer
	b := Count(WithWriter(context.Background(), &buf), 0, "Downloading mods")
	assert.Nil(t, b.bar)
	assert.Zero(t, buf.Len())
}

func TestCount(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithWriter(context.Background(), &buf)

	b := Count(ctx, 2, "Downloading mods")
	b.On("examplemod.jar")
	b.Tick()
	b.Tick()
	b.Close()

	assert.Contains(t, buf.String(), "Downloading mods")
}
