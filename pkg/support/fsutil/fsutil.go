// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ReplaceTildeInDir by the user's home directory. Returns dir if it doesn't start with "~".
//
// It returns an error if `dir` has an unknown user or some other filesystem error (e.g: `~unknown/...`)
func ReplaceTildeInDir(dir string) (string, error) {
	if len(dir) == 0 || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		sepIdx := strings.IndexRune(dir, '/')
		if sepIdx == -1 {
			userName = dir[1:]
		} else {
			userName = dir[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return path.Join(usr.HomeDir, dir[1+len(userName):]), nil
}

// WriteFile replaces "~" in filePath, creates its parent directory if needed, and writes contents to it.
// It returns the path actually written.
func WriteFile(filePath string, contents []byte) (string, error) {
	filePath, err := ReplaceTildeInDir(filePath)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directory %q", dir)
		}
	}
	if err = os.WriteFile(filePath, contents, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %q", filePath)
	}
	return filePath, nil
}
