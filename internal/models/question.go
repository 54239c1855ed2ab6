package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	TrueFalse      QuestionKind = "true_false"
	ShortAnswer    QuestionKind = "short_answer"
)

// QuestionOption is one selectable choice of a multiple_choice question.
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is one entry of an assessment's embedded question set. Kind is the
// variant tag: Options carries the multiple_choice payload, CorrectAnswer the
// true_false/short_answer payload. Answer values round-trip through JSON, so
// CorrectAnswer holds the decoded form (bool, string, float64, ...).
type Question struct {
	ID            string           `json:"id"`
	Kind          QuestionKind     `json:"kind"`
	Prompt        string           `json:"prompt"`
	Options       []QuestionOption `json:"options,omitempty"`
	CorrectAnswer interface{}      `json:"correct_answer,omitempty"`
	Points        int              `json:"points"`
}

// CorrectOption returns the first option flagged correct, or nil.
func (q *Question) CorrectOption() *QuestionOption {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionSet is the ordered question sequence of an exam or quiz.
type QuestionSet []Question

// TotalPoints sums the per-question point values.
func (qs QuestionSet) TotalPoints() int {
	total := 0
	for _, q := range qs {
		total += q.Points
	}
	return total
}

// ToJSON encodes the set for storage in a JSONB column.
func (qs QuestionSet) ToJSON() (datatypes.JSON, error) {
	data, err := json.Marshal(qs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal question set: %w", err)
	}
	return data, nil
}

// QuestionSetFromJSON decodes a stored question set.
func QuestionSetFromJSON(data datatypes.JSON) (QuestionSet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var qs QuestionSet
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question set: %w", err)
	}
	return qs, nil
}

// AnswerSet maps question id to the candidate's submitted answer value.
type AnswerSet map[string]interface{}

// ToJSON encodes the answers for storage in a JSONB column.
func (as AnswerSet) ToJSON() (datatypes.JSON, error) {
	data, err := json.Marshal(as)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer set: %w", err)
	}
	return data, nil
}

// AnswerSetFromJSON decodes a stored answer set.
func AnswerSetFromJSON(data datatypes.JSON) (AnswerSet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var as AnswerSet
	if err := json.Unmarshal(data, &as); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answer set: %w", err)
	}
	return as, nil
}

// StudentRef is a denormalized list entry of an exam's allow/deny lists.
type StudentRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name,omitempty"`
}

// StudentRefList is stored as JSONB on exams.
type StudentRefList []StudentRef

// IDs extracts the non-zero student ids from the list.
func (l StudentRefList) IDs() []uint {
	ids := make([]uint, 0, len(l))
	for _, ref := range l {
		if ref.ID != 0 {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// Contains reports whether the list names the given student.
func (l StudentRefList) Contains(studentID uint) bool {
	for _, ref := range l {
		if ref.ID == studentID {
			return true
		}
	}
	return false
}

// ToJSON encodes the list for storage in a JSONB column.
func (l StudentRefList) ToJSON() (datatypes.JSON, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal student list: %w", err)
	}
	return data, nil
}

// StudentRefListFromJSON decodes a stored allow/deny list.
func StudentRefListFromJSON(data datatypes.JSON) (StudentRefList, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var l StudentRefList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal student list: %w", err)
	}
	return l, nil
}
