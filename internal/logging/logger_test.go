package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_DefaultsToSlogDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWith_AttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, false, true))
	ctx = With(ctx, "run", "abc")

	Info(ctx, "classified", "files", 3)
	Debug(ctx, "hidden at info level")
	Error(ctx, "module failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "run=abc")
	assert.Contains(t, out, "files=3")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "hidden at info level")
}

func TestNew_WarnByDefault(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, false, false))
	Info(ctx, "quiet")
	Warn(ctx, "loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
