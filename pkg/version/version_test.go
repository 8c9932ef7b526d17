package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortRev(t *testing.T) {
	assert.Equal(t, "a3f8c2d1", shortRev("a3f8c2d1e9b7"))
	assert.Equal(t, "dev", shortRev("dev"))
}

func TestFull(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, AppName+"/"))
	assert.NotEmpty(t, GitCommit)
}
