package service

import (
	"go-trip-api/validation"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// The patch helpers copy a field from a validated request body onto a model
// when the key is present. Absent keys leave the destination untouched, which
// lets the same apply function serve both create and partial update.

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func patchString(input map[string]any, key string, dst *string) {
	if v, ok := input[key]; ok {
		*dst = stringOf(v)
	}
}

func patchDate(input map[string]any, key string, dst *civil.Date) {
	if v, ok := input[key]; ok {
		if d, err := validation.ParseDate(stringOf(v)); err == nil {
			*dst = d
		}
	}
}

// patchNullableDate clears dst when the key is present with null.
func patchNullableDate(input map[string]any, key string, dst **civil.Date) {
	v, ok := input[key]
	if !ok {
		return
	}
	d, err := validation.ParseDate(stringOf(v))
	if err != nil {
		*dst = nil
		return
	}
	*dst = &d
}

func patchNullableTime(input map[string]any, key string, dst **civil.Time) {
	v, ok := input[key]
	if !ok {
		return
	}
	t, err := validation.ParseTime(stringOf(v))
	if err != nil {
		*dst = nil
		return
	}
	*dst = &t
}

func patchDateTime(input map[string]any, key string, dst *time.Time) {
	if v, ok := input[key]; ok {
		if t, err := validation.ParseDateTime(stringOf(v)); err == nil {
			*dst = t.UTC()
		}
	}
}

// patchDestinations stores the deduplicated destination list.
func patchDestinations(input map[string]any, key string, dst *[]string) {
	v, ok := input[key]
	if !ok {
		return
	}
	items, _ := DedupeDestinations(v).([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	*dst = out
}
