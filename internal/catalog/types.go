// Package catalog loads the course catalog snapshot and serves read-only
// lookups over it: course code matching (including crosslistings), department
// listings, distribution requirement indexes, and formatted course details.
//
// The snapshot is loaded lazily on first use and cached for the process
// lifetime. A new snapshot requires a restart.
package catalog

import (
	"encoding/json"
	"strings"
)

// Snapshot is the root of the catalog JSON document.
type Snapshot struct {
	Term []Term `json:"term"`
}

// Term holds all subjects offered in one academic term.
// Only the first term of the snapshot is served.
type Term struct {
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Subjects []Subject `json:"subjects"`
}

// Subject is a department prefix ("COS") and its course offerings.
type Subject struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

// Course is a single catalog entry.
type Course struct {
	CourseID      string         `json:"course_id"`
	CatalogNumber string         `json:"catalog_number"`
	Title         string         `json:"title"`
	Instructors   []Instructor   `json:"instructors"`
	Crosslistings []Crosslisting `json:"crosslistings"`
	Classes       []Class        `json:"classes"`
	Detail        Detail         `json:"detail"`
}

// Instructor identifies one course instructor.
type Instructor struct {
	FullName string `json:"full_name"`
}

// Crosslisting is an alternative code under which a course is listed.
type Crosslisting struct {
	Subject       string `json:"subject"`
	CatalogNumber string `json:"catalog_number"`
}

// Class is one section of a course.
type Class struct {
	TypeName string   `json:"type_name"`
	Schedule Schedule `json:"schedule"`
}

// Schedule holds the meeting times of a class section.
type Schedule struct {
	Meetings []Meeting `json:"meetings"`
}

// Meeting is a recurring weekly meeting slot.
type Meeting struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// Detail carries descriptive course metadata.
type Detail struct {
	Description  string           `json:"description"`
	Distribution DistributionTags `json:"distribution"`
}

// DistributionTags is the set of distribution requirement codes a course
// satisfies. Snapshots are inconsistent about the encoding: some carry a JSON
// array, others a comma or space delimited string. Both decode to a flat,
// upper-cased list here.
type DistributionTags []string

// UnmarshalJSON accepts either a JSON array of strings or a single delimited string.
func (d *DistributionTags) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*d = cleanTags(asList)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	*d = cleanTags(strings.Fields(strings.ReplaceAll(asString, ",", " ")))
	return nil
}

func cleanTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// CourseDetails is the presentation form of a course used in API responses
// and chat context.
type CourseDetails struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Instructor  string `json:"instructor"`
	Format      string `json:"format"`
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
}
