package triage

import (
	"net/url"
	"regexp"
	"strings"
)

// EnvironmentDetail is what could be inferred from one URL. Any field other
// than URL may be empty.
type EnvironmentDetail struct {
	URL        string `json:"url"`
	Host       string `json:"host,omitempty"`
	Region     string `json:"region,omitempty"`
	Firm       string `json:"firm,omitempty"`
	Engagement string `json:"engagement,omitempty"`
}

// RegionToken maps a hostname substring to a region name.
type RegionToken struct {
	Token  string
	Region string
}

// DefaultRegions is checked in order; the first token found in the hostname wins.
var DefaultRegions = []RegionToken{
	{Token: "staging", Region: "Staging"},
	{Token: "uat", Region: "UAT"},
	{Token: "sandbox", Region: "Sandbox"},
	{Token: "us1", Region: "US Production"},
	{Token: "us2", Region: "US Production 2"},
	{Token: "ca1", Region: "Canada Production"},
	{Token: "eu1", Region: "EU Production"},
	{Token: "uk1", Region: "UK Production"},
	{Token: "au1", Region: "Australia Production"},
	{Token: "ap1", Region: "Asia Pacific Production"},
}

var (
	urlPattern        = regexp.MustCompile(`https?://[^\s<>"'\[\]{}|\\^` + "`" + `]+`)
	engagementPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
)

// ExtractEnvironments scans text for URLs and infers environment details
// from each distinct one.
func ExtractEnvironments(text string, regions []RegionToken) []EnvironmentDetail {
	var out []EnvironmentDetail
	seen := make(map[string]bool)
	for _, raw := range urlPattern.FindAllString(text, -1) {
		raw = strings.TrimRight(raw, ".,;:!?)…")
		if seen[raw] {
			continue
		}
		seen[raw] = true
		if detail, ok := parseEnvironment(raw, regions); ok {
			out = append(out, detail)
		}
	}
	return out
}

func parseEnvironment(raw string, regions []RegionToken) (EnvironmentDetail, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return EnvironmentDetail{}, false
	}
	host := strings.ToLower(u.Hostname())
	detail := EnvironmentDetail{URL: raw, Host: host, Region: inferRegion(host, regions)}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return detail, true
	}
	if !isOpaqueID(segments[0]) {
		detail.Firm = segments[0]
	}
	for _, seg := range segments {
		if isOpaqueID(seg) {
			detail.Engagement = seg
			break
		}
	}
	return detail, true
}

func inferRegion(host string, regions []RegionToken) string {
	for _, r := range regions {
		if strings.Contains(host, r.Token) {
			return r.Region
		}
	}
	return ""
}

// isOpaqueID reports whether a path segment looks like a generated
// identifier: ten or more URL-safe characters including at least one digit.
func isOpaqueID(seg string) bool {
	return engagementPattern.MatchString(seg) && strings.ContainsAny(seg, "0123456789")
}
