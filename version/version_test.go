package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrint(t *testing.T) {
	Version, GitCommit = "1.2.3", "abc"
	defer func() { Version, GitCommit = "", "" }()

	var buf bytes.Buffer
	Print(&buf)
	assert.Equal(t, "Version: 1.2.3\nCommit: abc\n", buf.String())
	assert.Equal(t, "cmpdl/1.2.3", UserAgent())
}
