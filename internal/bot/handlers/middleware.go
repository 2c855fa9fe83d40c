package handlers

import "strings"

// isMaster reports whether username is the configured master. The leading
// "@" is optional on both sides and the comparison ignores case. An unset
// master matches nobody.
func isMaster(master, username string) bool {
	master = strings.TrimPrefix(strings.TrimSpace(master), "@")
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if master == "" {
		return false
	}
	return strings.EqualFold(master, username)
}
