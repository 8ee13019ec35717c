package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxSegmentLength bounds a single coordinate component. Version strings are
// opaque, but anything this long is not a version.
const maxSegmentLength = 256

// ValidateSegment checks that value can be used verbatim as one directory
// or file name component inside the repository. kind names the value in the
// error message ("version", "artifact id").
//
// The rules only reject what would escape or corrupt the repository layout:
//   - No empty or whitespace-padded values
//   - No control characters or null bytes
//   - No path separators (/ or \)
//   - Not "." or ".."
func ValidateSegment(kind, value string) error {
	if value == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", kind)
	}
	if strings.TrimSpace(value) != value {
		return New(ErrCodeInvalidInput, "%s %q has leading or trailing whitespace", kind, value)
	}
	if len(value) > maxSegmentLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", kind, maxSegmentLength)
	}

	for _, r := range value {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", kind)
		}
	}

	if strings.ContainsAny(value, "/\\") {
		return New(ErrCodeInvalidInput, "%s %q cannot contain path separators", kind, value)
	}
	if value == "." || value == ".." {
		return New(ErrCodeInvalidInput, "%s cannot be %q", kind, value)
	}

	return nil
}

// groupIDRegex matches dotted Maven group ids such as "com.example.tools".
var groupIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// ValidateGroupID validates a Maven group id. Each dot-separated part becomes
// a directory, so empty parts ("com..example") are rejected.
func ValidateGroupID(group string) error {
	if group == "" {
		return New(ErrCodeInvalidInput, "group id cannot be empty")
	}
	if !groupIDRegex.MatchString(group) {
		return New(ErrCodeInvalidInput, "invalid group id: %q", group)
	}
	return nil
}

// ValidateEntryPrefix validates an archive namespace prefix such as
// "com/example/". Archive entry names always use forward slashes and are
// relative, so a leading slash or a backslash can never match anything.
func ValidateEntryPrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidConfig, "namespace prefix cannot be empty")
	}
	if strings.HasPrefix(prefix, "/") {
		return New(ErrCodeInvalidConfig, "namespace prefix %q must be relative", prefix)
	}
	if strings.Contains(prefix, "\\") {
		return New(ErrCodeInvalidConfig, "namespace prefix %q must use forward slashes", prefix)
	}
	if strings.Contains(prefix, "..") {
		return New(ErrCodeInvalidConfig, "namespace prefix %q cannot contain ..", prefix)
	}
	return nil
}
