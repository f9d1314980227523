// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// ProjectIdentity derives the stable cache identity of a project from its
// root path.
//
// The identity is a pure function of the cleaned absolute path: the same
// project directory always maps to the same cache unit, and two checkouts
// at different paths never collide. Path separators are normalized so the
// identity is stable across operating systems for the same logical path.
func ProjectIdentity(rootPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(strings.TrimSpace(rootPath)))
	sum := sha1.Sum([]byte(cleaned))
	return hex.EncodeToString(sum[:8])
}
