// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package builder

import "fmt"

// WarningKind classifies non-fatal build findings.
//
// Warnings are the builder's only channel for input problems: one malformed
// or conflicting object among tens of thousands must never abort the build.
// They surface once in tooling output and are otherwise inert.
type WarningKind int

const (
	// WarningMalformedRecord marks a record that failed validation and
	// was skipped.
	WarningMalformedRecord WarningKind = iota

	// WarningUnknownKind marks a record whose structural kind is not in
	// the closed kind vocabulary; the entity is kept bare.
	WarningUnknownKind

	// WarningNameConflict marks a qualified name defined by both streams;
	// the configuration-sourced entity won.
	WarningNameConflict

	// WarningDuplicateName marks a qualified name defined twice within
	// one stream; the first definition won.
	WarningDuplicateName

	// WarningBareEntity marks a configuration entity whose structural
	// kind has no registered platform template; it was kept with only its
	// directly-stated extensions.
	WarningBareEntity
)

// String returns the string representation of the WarningKind.
func (k WarningKind) String() string {
	switch k {
	case WarningMalformedRecord:
		return "malformed_record"
	case WarningUnknownKind:
		return "unknown_kind"
	case WarningNameConflict:
		return "name_conflict"
	case WarningDuplicateName:
		return "duplicate_name"
	case WarningBareEntity:
		return "bare_entity"
	default:
		return "unknown"
	}
}

// Warning is one non-fatal build finding.
type Warning struct {
	Kind WarningKind

	// QualifiedName is the record's qualified name when known; malformed
	// records may not have one.
	QualifiedName string

	// Detail is a human-readable explanation.
	Detail string
}

// String renders the warning for tooling output.
func (w Warning) String() string {
	if w.QualifiedName == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.QualifiedName, w.Detail)
}
