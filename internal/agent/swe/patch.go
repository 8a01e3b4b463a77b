package swe

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// testPathMarkers flag a diff target as test code.
var testPathMarkers = []string{"/test/", "/tests/", "/testing/", "test_", "tox.ini"}

// GitDiff returns the unified diff of the working tree in dir, or of
// baseCommit against HEAD when baseCommit is set. Any failure yields "".
func GitDiff(ctx context.Context, dir, baseCommit string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	args := []string{"--no-pager", "diff"}
	if baseCommit != "" {
		args = append(args, baseCommit, "HEAD")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// RemovePatchesToTests drops every file section of patch whose target
// path looks like test code. Sections start at "diff --git a/" lines and
// the target is the last field of that line when it starts with "b/".
func RemovePatchesToTests(patch string) string {
	var b strings.Builder
	b.Grow(len(patch))

	isTest := false
	for _, line := range strings.SplitAfter(patch, "\n") {
		if strings.HasPrefix(line, "diff --git a/") {
			fields := strings.Fields(line)
			target := fields[len(fields)-1]
			isTest = strings.HasPrefix(target, "b/") && containsAny(target, testPathMarkers)
		}
		if !isTest {
			b.WriteString(line)
		}
	}
	return b.String()
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
