package awsconfig

import (
	"cmp"
	"slices"
	"strings"
)

const (
	defaultSection   = "default"
	profilePrefix    = "profile "
	ssoSessionPrefix = "sso-session "
	defaultScopes    = "sso:account:access"
)

// Metadata comment labels in the credentials file.
const (
	metadataAccount     = "Account:"
	metadataRole        = "Role:"
	metadataValid       = "Valid:"
	metadataExpiration  = "Expiration:"
	metadataInvalidated = "Invalidated:"
)

const (
	invalidAccessKeyID  = "INVALID_KEY"
	invalidSecretKey    = "INVALID_SECRET"
	invalidSessionToken = "INVALID_TOKEN"
)

const (
	keyAccessKeyID     = "aws_access_key_id"
	keySecretAccessKey = "aws_secret_access_key"
	keySessionToken    = "aws_session_token"

	keyRegion       = "region"
	keyOutput       = "output"
	keySSOSession   = "sso_session"
	keySSOAccountID = "sso_account_id"
	keySSORoleName  = "sso_role_name"

	keySSOStartURL = "sso_start_url"
	keySSORegion   = "sso_region"
	keySSOScopes   = "sso_registration_scopes"
)

// section is one INI section kept as raw lines so that untouched content
// round-trips byte for byte.
type section struct {
	header string
	name   string
	body   []string
}

// document is a line-level view of an INI file: lines before the first
// section header, then each section in file order.
type document struct {
	preamble []string
	sections []*section
}

func parseSectionHeader(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(t[1 : len(t)-1]), true
}

func parseDocument(text string) *document {
	doc := &document{}
	if text == "" {
		return doc
	}

	var current *section
	for _, line := range strings.Split(text, "\n") {
		if name, ok := parseSectionHeader(line); ok {
			current = &section{header: line, name: name}
			doc.sections = append(doc.sections, current)
			continue
		}
		if current == nil {
			doc.preamble = append(doc.preamble, line)
			continue
		}
		current.body = append(current.body, line)
	}
	return doc
}

// String reproduces the document exactly as parsed, plus any edits.
func (d *document) String() string {
	lines := slices.Clone(d.preamble)
	for _, s := range d.sections {
		lines = append(lines, s.header)
		lines = append(lines, s.body...)
	}
	return strings.Join(lines, "\n")
}

func (d *document) find(name string) *section {
	for _, s := range d.sections {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (d *document) has(name string) bool {
	return d.find(name) != nil
}

// ensure returns the named section, appending an empty one when missing.
func (d *document) ensure(name string) *section {
	if s := d.find(name); s != nil {
		return s
	}
	s := &section{header: "[" + name + "]", name: name}
	d.sections = append(d.sections, s)
	return s
}

// remove drops the named section. Comment lines trailing its last key are
// kept, since they usually describe whatever follows.
func (d *document) remove(name string) bool {
	idx := slices.IndexFunc(d.sections, func(s *section) bool { return s.name == name })
	if idx < 0 {
		return false
	}

	trailing := d.sections[idx].trailingComments()
	d.sections = slices.Delete(d.sections, idx, idx+1)
	if len(trailing) == 0 {
		return true
	}
	if idx > 0 {
		prev := d.sections[idx-1]
		prev.body = append(prev.body, trailing...)
	} else {
		d.preamble = append(d.preamble, trailing...)
	}
	return true
}

func (d *document) rename(from, to string) bool {
	s := d.find(from)
	if s == nil {
		return false
	}
	s.name = to
	s.header = "[" + to + "]"
	return true
}

func (s *section) trailingComments() []string {
	last := -1
	for i, line := range s.body {
		if _, _, ok := parseKeyValue(line); ok {
			last = i
		}
	}
	var out []string
	for _, line := range s.body[last+1:] {
		if isCommentLine(line) {
			out = append(out, line)
		}
	}
	return out
}

func parseKeyValue(line string) (key, value string, ok bool) {
	if isBlank(line) || isCommentLine(line) {
		return "", "", false
	}
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

func (s *section) get(key string) (string, bool) {
	for _, line := range s.body {
		if k, v, ok := parseKeyValue(line); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// set replaces the first assignment of key, or inserts one after the last
// non-blank line of the section.
func (s *section) set(key, value string) {
	line := key + " = " + value
	for i, l := range s.body {
		if k, _, ok := parseKeyValue(l); ok && k == key {
			s.body[i] = line
			return
		}
	}

	insert := 0
	for i, l := range s.body {
		if !isBlank(l) {
			insert = i + 1
		}
	}
	s.body = slices.Insert(s.body, insert, line)
}

func (s *section) unset(key string) {
	s.body = slices.DeleteFunc(s.body, func(l string) bool {
		k, _, ok := parseKeyValue(l)
		return ok && k == key
	})
}

// comment returns the value of a "# Label: value" metadata comment.
func (s *section) comment(label string) (string, bool) {
	for _, line := range s.body {
		if v, ok := metadataValue(line, label); ok {
			return v, true
		}
	}
	return "", false
}

func metadataValue(line, label string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return "", false
	}
	t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
	if !strings.HasPrefix(t, label) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(t, label)), true
}

// replaceComments drops metadata comments with the given labels and puts
// lines at the top of the section body.
func (s *section) replaceComments(labels []string, lines []string) {
	body := slices.DeleteFunc(slices.Clone(s.body), func(l string) bool {
		for _, label := range labels {
			if _, ok := metadataValue(l, label); ok {
				return true
			}
		}
		return false
	})
	s.body = append(slices.Clone(lines), body...)
}

// trimmedBody is the body without surrounding blank lines.
func (s *section) trimmedBody() []string {
	start, end := 0, len(s.body)
	for start < end && isBlank(s.body[start]) {
		start++
	}
	for end > start && isBlank(s.body[end-1]) {
		end--
	}
	return s.body[start:end]
}

func (s *section) render() string {
	return strings.Join(append([]string{s.header}, s.trimmedBody()...), "\n")
}

// sectionKind orders managed sections: default, sessions, profiles, anything else.
func sectionKind(name string) int {
	switch {
	case name == defaultSection:
		return 0
	case strings.HasPrefix(name, ssoSessionPrefix):
		return 1
	case strings.HasPrefix(name, profilePrefix):
		return 2
	default:
		return 3
	}
}

// renderSorted rebuilds text from the sections in canonical order with one
// blank line between sections.
func (d *document) renderSorted() string {
	sorted := slices.Clone(d.sections)
	slices.SortStableFunc(sorted, func(a, b *section) int {
		if c := cmp.Compare(sectionKind(a.name), sectionKind(b.name)); c != 0 {
			return c
		}
		if sectionKind(a.name) == 3 {
			return 0
		}
		return strings.Compare(a.name, b.name)
	})

	var parts []string
	if pre := joinTrimmed(d.preamble); pre != "" {
		parts = append(parts, pre)
	}
	for _, s := range sorted {
		parts = append(parts, s.render())
	}
	return strings.Join(parts, "\n\n")
}

// renderCredentials orders sections with default first and the rest by name.
func (d *document) renderCredentials() string {
	sorted := slices.Clone(d.sections)
	slices.SortStableFunc(sorted, func(a, b *section) int {
		switch {
		case a.name == defaultSection && b.name != defaultSection:
			return -1
		case b.name == defaultSection && a.name != defaultSection:
			return 1
		}
		return strings.Compare(a.name, b.name)
	})

	var parts []string
	if pre := joinTrimmed(d.preamble); pre != "" {
		parts = append(parts, pre)
	}
	for _, s := range sorted {
		parts = append(parts, s.render())
	}
	return strings.Join(parts, "\n\n")
}

// configSectionName maps a profile name to its section name in the config file.
func configSectionName(profile string) string {
	if profile == defaultSection {
		return defaultSection
	}
	return profilePrefix + profile
}

func sessionSectionName(name string) string {
	return ssoSessionPrefix + name
}

// profileNameFromSection is the inverse of configSectionName.
func profileNameFromSection(name string) (string, bool) {
	if name == defaultSection {
		return defaultSection, true
	}
	if p, ok := strings.CutPrefix(name, profilePrefix); ok {
		return strings.TrimSpace(p), true
	}
	return "", false
}
