package services

import (
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
)

// CheckExamAccess evaluates whether a candidate may start the exam at the
// given instant. Checks run in a fixed order and the first failing check
// wins, so a candidate on the allow-list is still denied NOT_STARTED before
// the window opens.
//
//  1. now before start_time            -> NOT_STARTED
//  2. now past end_time AND auto_close -> CLOSED
//  3. allow-list non-empty, absent     -> NOT_ALLOWED
//  4. deny-list non-empty, present     -> EXCLUDED
//
// With auto_close disabled the window end never gates new attempts here;
// quizzes carry no window at all and skip straight to CheckListAccess.
func CheckExamAccess(exam *models.Exam, studentID uint, now time.Time) (bool, AccessReason) {
	if now.Before(exam.StartTime) {
		return false, AccessNotStarted
	}
	if now.After(exam.EndTime) && exam.AutoClose {
		return false, AccessClosed
	}

	allowList, err := exam.AllowList()
	if err != nil {
		return false, AccessNotAllowed
	}
	denyList, err := exam.DenyList()
	if err != nil {
		return false, AccessExcluded
	}

	return CheckListAccess(allowList, denyList, studentID)
}

// CheckListAccess applies the allow/deny list checks in isolation (the full
// policy for quizzes, the non-temporal tail of it for exams).
func CheckListAccess(allowList, denyList models.StudentRefList, studentID uint) (bool, AccessReason) {
	if len(allowList) > 0 && !allowList.Contains(studentID) {
		return false, AccessNotAllowed
	}
	if len(denyList) > 0 && denyList.Contains(studentID) {
		return false, AccessExcluded
	}
	return true, ""
}
