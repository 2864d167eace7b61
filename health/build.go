package health

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
}

// readBuildInfo merges BUILD_* environment variables with an optional
// build.info file; the file wins.
func readBuildInfo(paths ...string) BuildInfo {
	info := BuildInfo{
		Version:   envOrDefault("BUILD_VERSION", "dev"),
		GitCommit: envOrDefault("BUILD_COMMIT", "unknown"),
		GoVersion: runtime.Version(),
	}
	if t, err := time.Parse(time.RFC3339, os.Getenv("BUILD_TIME")); err == nil {
		info.BuildTime = t
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parseBuildInfo(string(data), &info)
		break
	}

	return info
}

func parseBuildInfo(content string, info *BuildInfo) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "VERSION":
			info.Version = value
		case "GIT_COMMIT":
			info.GitCommit = value
		case "BUILD_TIME":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				info.BuildTime = t
			}
		}
	}
}

func (b BuildInfo) String() string {
	commit := b.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s-%s (%s, %s)", b.Version, commit, b.BuildTime.Format("2006-01-02"), b.GoVersion)
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
