package reviewers

import (
	"testing"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAntiPatterns_Python(t *testing.T) {
	findings := run(t, AntiPatterns(), changeset.FileChange{
		Path: "worker/app.py",
		Content: `try:
    run()
except:
    pass
# TODO: handle retries
# return compute(x)
x = 1
`,
	})
	require.Len(t, findings, 3)

	assert.Equal(t, 3, findings[0].StartLine())
	assert.Equal(t, review.P2, findings[0].Priority)
	assert.Equal(t, review.CategoryCorrectness, findings[0].Category)

	assert.Equal(t, 5, findings[1].StartLine())
	assert.Equal(t, review.P3, findings[1].Priority)
	assert.Contains(t, findings[1].Summary, "TODO marker added")

	assert.Equal(t, 6, findings[2].StartLine())
	assert.Contains(t, findings[2].Summary, "Commented-out code")
}

func TestAntiPatterns_TodoWinsOverCommentedCode(t *testing.T) {
	findings := run(t, AntiPatterns(), changeset.FileChange{
		Path:    "main.go",
		Content: "// FIXME return nil\n",
	})
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Summary, "FIXME")
}

func TestAntiPatterns_Lines(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"go discarded call", "\t_ = f.Close()", 1},
		{"js swallowed promise", "fetch(url).catch(() => {})", 1},
		{"java catch all", "} catch (Exception) {", 1},
		{"ruby bare rescue", "rescue", 1},
		{"plain comment", "// close the file before returning", 0},
		{"ordinary code", "if err != nil {", 0},
		{"todo inside identifier", "todoList := nil", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := run(t, AntiPatterns(), changeset.FileChange{Path: "x.go", Content: tt.line + "\n"})
			assert.Len(t, findings, tt.want)
		})
	}
}
