package visit

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/visit-api/internal/model"
)

// Errors maps a field path inside the draft to a message, e.g.
// "medications[2].dosage" -> "dosage is required". Path addressing lets
// each nested editor surface its own rows' problems instead of one
// all-or-nothing flag.
type Errors map[string]string

func (e Errors) Empty() bool { return len(e) == 0 }

func (e Errors) add(path, msg string) { e[path] = msg }

func (e Errors) Error() string {
	if len(e) == 0 {
		return "draft is valid"
	}
	parts := make([]string, 0, len(e))
	for path, msg := range e {
		parts = append(parts, path+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Validate checks the whole draft against the submission rules and returns
// the full error map. It is a pure function of the draft: no I/O, no
// mutation, identical output for identical input.
func Validate(d *model.VisitDraft) Errors {
	errs := Errors{}

	if d.PatientID == "" {
		errs.add("patient_id", "patient is required")
	}
	if !d.VisitType.Valid() {
		errs.add("visit_type", "unrecognized visit type")
	}
	if strings.TrimSpace(d.Symptoms) == "" {
		errs.add("symptoms", "symptoms are required")
	}
	if strings.TrimSpace(d.Diagnosis) == "" {
		errs.add("diagnosis", "diagnosis is required")
	}

	for i, m := range d.Medications {
		path := func(field string) string { return fmt.Sprintf("medications[%d].%s", i, field) }
		if m.Name == "" {
			errs.add(path("name"), "medication name is required")
		}
		if m.Dosage == "" {
			errs.add(path("dosage"), "dosage is required")
		}
		if !m.Frequency.Valid() {
			errs.add(path("frequency"), "unrecognized frequency")
		}
		if m.Duration < 1 {
			errs.add(path("duration"), "duration must be at least one day")
		}
	}

	for i, t := range d.LabTests {
		if t.CatalogID == "" {
			errs.add(fmt.Sprintf("lab_tests[%d].catalog_id", i), "test is not bound to the catalog")
		}
	}
	for i, t := range d.Rays {
		if t.CatalogID == "" {
			errs.add(fmt.Sprintf("rays[%d].catalog_id", i), "test is not bound to the catalog")
		}
	}

	if d.VisitType == model.VisitTypeDental {
		for i, p := range d.DentalProcedures {
			if p.Type == "" {
				errs.add(fmt.Sprintf("dental_procedures[%d].type", i), "procedure type is required")
			}
			if len(p.Teeth) == 0 {
				errs.add(fmt.Sprintf("dental_procedures[%d].teeth", i), "at least one tooth is required")
			}
		}
	}

	return errs
}

// ValidateScalar checks a single top-level field eagerly, for blur-time
// feedback on the scalar inputs. Collection items are deliberately not
// covered: they only validate on submit, so half-typed rows do not flash
// errors mid-edit.
func ValidateScalar(d *model.VisitDraft, field string) (string, bool) {
	full := Validate(d)
	msg, ok := full[field]
	switch field {
	case "patient_id", "visit_type", "symptoms", "diagnosis":
		return msg, ok
	}
	return "", false
}
