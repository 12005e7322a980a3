package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	ShardpipeVersion         = "devel"
	GitRevision              = "devel"
	ShardpipeVersionRevision = fmt.Sprintf("%s-%s", ShardpipeVersion, GitRevision)
)
