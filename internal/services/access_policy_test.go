package services

import (
	"testing"
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
)

func policyExam(t *testing.T, start, end time.Time, autoClose bool, allow, deny models.StudentRefList) *models.Exam {
	t.Helper()

	allowJSON, err := allow.ToJSON()
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	denyJSON, err := deny.ToJSON()
	if err != nil {
		t.Fatalf("deny list: %v", err)
	}

	return &models.Exam{
		StartTime:        start,
		EndTime:          end,
		AutoClose:        autoClose,
		AllowedStudents:  allowJSON,
		ExcludedStudents: denyJSON,
	}
}

func TestCheckExamAccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	open := now.Add(-time.Hour)
	closed := now.Add(time.Hour)

	tests := []struct {
		name       string
		exam       *models.Exam
		studentID  uint
		wantOK     bool
		wantReason AccessReason
	}{
		{
			name:   "open window no lists",
			exam:   policyExam(t, open, closed, true, nil, nil),
			wantOK: true,
		},
		{
			name:       "before start",
			exam:       policyExam(t, now.Add(time.Minute), closed, true, nil, nil),
			wantOK:     false,
			wantReason: AccessNotStarted,
		},
		{
			name:       "after end with auto close",
			exam:       policyExam(t, open, now.Add(-time.Minute), true, nil, nil),
			wantOK:     false,
			wantReason: AccessClosed,
		},
		{
			name:   "after end without auto close",
			exam:   policyExam(t, open, now.Add(-time.Minute), false, nil, nil),
			wantOK: true,
		},
		{
			name:       "allow list absent",
			exam:       policyExam(t, open, closed, true, models.StudentRefList{{ID: 7}}, nil),
			studentID:  9,
			wantOK:     false,
			wantReason: AccessNotAllowed,
		},
		{
			name:      "allow list present",
			exam:      policyExam(t, open, closed, true, models.StudentRefList{{ID: 9}}, nil),
			studentID: 9,
			wantOK:    true,
		},
		{
			name:       "deny list present",
			exam:       policyExam(t, open, closed, true, nil, models.StudentRefList{{ID: 9}}),
			studentID:  9,
			wantOK:     false,
			wantReason: AccessExcluded,
		},
		{
			name:      "deny list absent",
			exam:      policyExam(t, open, closed, true, nil, models.StudentRefList{{ID: 7}}),
			studentID: 9,
			wantOK:    true,
		},
		{
			// Temporal checks outrank list membership.
			name:       "not started wins over allow list membership",
			exam:       policyExam(t, now.Add(time.Minute), closed, true, models.StudentRefList{{ID: 9}}, nil),
			studentID:  9,
			wantOK:     false,
			wantReason: AccessNotStarted,
		},
		{
			name:       "closed wins over deny list",
			exam:       policyExam(t, open, now.Add(-time.Minute), true, nil, models.StudentRefList{{ID: 9}}),
			studentID:  9,
			wantOK:     false,
			wantReason: AccessClosed,
		},
		{
			// A student on both lists fails the allow check first.
			name:       "allow check wins over deny check",
			exam:       policyExam(t, open, closed, true, models.StudentRefList{{ID: 7}}, models.StudentRefList{{ID: 9}}),
			studentID:  9,
			wantOK:     false,
			wantReason: AccessNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckExamAccess(tt.exam, tt.studentID, now)
			if ok != tt.wantOK || reason != tt.wantReason {
				t.Errorf("CheckExamAccess() = (%v, %q), want (%v, %q)", ok, reason, tt.wantOK, tt.wantReason)
			}
		})
	}
}

func TestCheckListAccess(t *testing.T) {
	tests := []struct {
		name       string
		allow      models.StudentRefList
		deny       models.StudentRefList
		studentID  uint
		wantOK     bool
		wantReason AccessReason
	}{
		{name: "no lists", studentID: 1, wantOK: true},
		{name: "on allow list", allow: models.StudentRefList{{ID: 1}}, studentID: 1, wantOK: true},
		{name: "off allow list", allow: models.StudentRefList{{ID: 2}}, studentID: 1, wantOK: false, wantReason: AccessNotAllowed},
		{name: "on deny list", deny: models.StudentRefList{{ID: 1}}, studentID: 1, wantOK: false, wantReason: AccessExcluded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckListAccess(tt.allow, tt.deny, tt.studentID)
			if ok != tt.wantOK || reason != tt.wantReason {
				t.Errorf("CheckListAccess() = (%v, %q), want (%v, %q)", ok, reason, tt.wantOK, tt.wantReason)
			}
		})
	}
}
