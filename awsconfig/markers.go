package awsconfig

import (
	"strings"
)

// Sentinel comment lines separating user-owned sections from managed ones.
const (
	UserManagedMarker  = "# ==================== User-managed sections ===================="
	UserManagedComment = "# (sections below this line are not modified by awsom)"
	ToolManagedMarker  = "# ==================== Managed by awsom ===================="
	ToolManagedComment = "# (sections below this line are automatically managed by awsom)"
)

func isMarkerLine(line string) bool {
	switch strings.TrimSpace(line) {
	case UserManagedMarker, UserManagedComment, ToolManagedMarker, ToolManagedComment:
		return true
	}
	return false
}

func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "#") || strings.HasPrefix(t, ";")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// HasMarkers reports whether either region marker is present.
func HasMarkers(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		switch strings.TrimSpace(line) {
		case UserManagedMarker, ToolManagedMarker:
			return true
		}
	}
	return false
}

// EnsureMarkers migrates an unmarked file into the three-region layout with
// all existing content placed in the user-managed region. Text that already
// carries a marker is returned unchanged.
func EnsureMarkers(text string) string {
	if HasMarkers(text) {
		return text
	}

	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) && (isBlank(lines[i]) || isCommentLine(lines[i])) {
		i++
	}
	return reconstruct(joinTrimmed(lines[:i]), joinTrimmed(lines[i:]), "")
}

// SplitByMarker returns the user-managed region, header included, and the
// tool-managed region.
func SplitByMarker(text string) (user, tool string) {
	header, user, tool := splitRegions(text)
	switch {
	case header == "":
		return user, tool
	case user == "":
		return header, tool
	default:
		return header + "\n" + user, tool
	}
}

type regionState int

const (
	inHeader regionState = iota
	inUser
	inTool
)

// splitRegions partitions text into the leading comment header, the
// user-managed region and the tool-managed region. Marker lines are dropped
// and each part is trimmed of surrounding blank lines. Without a tool marker
// everything after the header is user-managed.
func splitRegions(text string) (header, user, tool string) {
	var h, u, t []string
	state := inHeader

	for _, line := range strings.Split(text, "\n") {
		switch strings.TrimSpace(line) {
		case ToolManagedMarker:
			state = inTool
			continue
		case UserManagedMarker:
			if state == inHeader {
				state = inUser
			}
			continue
		case UserManagedComment, ToolManagedComment:
			continue
		}

		switch state {
		case inHeader:
			if isBlank(line) || isCommentLine(line) {
				h = append(h, line)
				continue
			}
			state = inUser
			u = append(u, line)
		case inUser:
			u = append(u, line)
		case inTool:
			t = append(t, line)
		}
	}

	return joinTrimmed(h), joinTrimmed(u), joinTrimmed(t)
}

// reconstruct is the inverse of splitRegions.
func reconstruct(header, user, tool string) string {
	var b strings.Builder
	if strings.TrimSpace(header) != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}

	b.WriteString(UserManagedMarker + "\n" + UserManagedComment + "\n")
	if user != "" {
		b.WriteString("\n" + user + "\n")
	}

	b.WriteString("\n" + ToolManagedMarker + "\n" + ToolManagedComment + "\n")
	if tool != "" {
		b.WriteString("\n" + tool + "\n")
	}

	return b.String()
}

// CleanupEmptyLines collapses runs of blank lines into one and drops leading
// and trailing blank lines. Non-empty output ends with a single newline.
func CleanupEmptyLines(text string) string {
	var out []string
	prevBlank := true
	for _, line := range strings.Split(text, "\n") {
		if isBlank(line) {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		out = append(out, line)
		prevBlank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// joinTrimmed joins lines after dropping leading and trailing blank ones.
func joinTrimmed(lines []string) string {
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
