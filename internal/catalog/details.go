package catalog

import (
	"context"
	"strings"
)

var dayNames = map[string]string{
	"M": "Mon",
	"T": "Tue",
	"W": "Wed",
	"R": "Thu",
	"F": "Fri",
	"S": "Sat",
	"U": "Sun",
}

// Details resolves a course code to its presentation form: first listed
// instructor (TBA when unstaffed), the format of the first section, and a
// compact weekly schedule string.
func (s *Store) Details(ctx context.Context, code string) (CourseDetails, error) {
	course, err := s.Match(ctx, code)
	if err != nil {
		return CourseDetails{}, err
	}

	instructor := "TBA"
	if len(course.Instructors) > 0 && course.Instructors[0].FullName != "" {
		instructor = course.Instructors[0].FullName
	}

	format := "Unknown"
	schedule := "TBA"
	if len(course.Classes) > 0 {
		first := course.Classes[0]
		if first.TypeName != "" {
			format = first.TypeName
		}
		if formatted := formatSchedule(first.Schedule); formatted != "" {
			schedule = formatted
		}
	}

	return CourseDetails{
		Code:        code,
		Title:       course.Title,
		Instructor:  instructor,
		Format:      format,
		Schedule:    schedule,
		Description: course.Detail.Description,
	}, nil
}

func formatSchedule(s Schedule) string {
	var parts []string
	for _, m := range s.Meetings {
		if len(m.Days) == 0 || m.StartTime == "" || m.EndTime == "" {
			continue
		}
		days := make([]string, 0, len(m.Days))
		for _, d := range m.Days {
			if full, ok := dayNames[d]; ok {
				days = append(days, full)
			} else {
				days = append(days, d)
			}
		}
		parts = append(parts, strings.Join(days, ", ")+" "+m.StartTime+"-"+m.EndTime)
	}
	return strings.Join(parts, " | ")
}
