package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoFormatting(t *testing.T) {
	info := Info{
		Version:       "1.2.3",
		GitCommit:     "0123456789abcdef",
		GitCommitTime: "2024-05-01T10:00:00Z",
		GitTreeDirty:  true,
		GoVersion:     "go1.23.3",
	}
	assert.Equal(t, "1.2.3+0123456-dirty", info.Short())
	assert.Equal(t, "relayfuzz version 1.2.3\n"+
		"  Commit:     0123456-dirty\n"+
		"  Built:      2024-05-01 10:00:00 UTC\n"+
		"  Go version: go1.23.3\n", info.String())

	bare := Info{Version: "1.2.3", GoVersion: "go1.23.3"}
	assert.Equal(t, "1.2.3", bare.Short())
	assert.Equal(t, "relayfuzz version 1.2.3\n  Go version: go1.23.3\n", bare.String())
}

func TestSetFromBuildSettingsKeepsLdflags(t *testing.T) {
	commit, commitTime, dirty := GitCommit, GitCommitTime, GitTreeDirty
	defer func() { GitCommit, GitCommitTime, GitTreeDirty = commit, commitTime, dirty }()

	GitCommit, GitCommitTime, GitTreeDirty = "fromldflags", "", ""
	setFromBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "fromvcs"},
		{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "false"},
		{Key: "GOOS", Value: "linux"},
	})
	assert.Equal(t, "fromldflags", GitCommit)
	assert.Equal(t, "2024-05-01T10:00:00Z", GitCommitTime)
	assert.Equal(t, "false", GitTreeDirty)
}
