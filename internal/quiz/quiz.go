// Package quiz implements the secondary quiz game mode: a host runs through a
// list of multiple-choice questions and players score points for fast,
// correct answers.
package quiz

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTimeLimit is used for questions that do not set one, in seconds
const DefaultTimeLimit = 20

// Question is one multiple-choice question
type Question struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correctAnswer" json:"correctAnswer"`
	TimeLimit     int      `yaml:"timeLimit,omitempty" json:"timeLimit,omitempty"`
}

// Limit returns the question's time limit in seconds
func (q Question) Limit() int {
	if q.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return q.TimeLimit
}

// Quiz is a titled list of questions
type Quiz struct {
	Title     string     `yaml:"title" json:"title"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Parse decodes a quiz document. Both YAML and JSON are accepted, either as a
// bare quiz or wrapped in a top-level "quiz" key.
func Parse(data []byte) (*Quiz, error) {
	var wrapped struct {
		Quiz *Quiz `yaml:"quiz"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}

	q := wrapped.Quiz
	if q == nil {
		q = &Quiz{}
		if err := yaml.Unmarshal(data, q); err != nil {
			return nil, fmt.Errorf("decode quiz: %w", err)
		}
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	return q, nil
}

// Validate checks that the quiz can be played
func (q *Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return errors.New("quiz has no questions")
	}

	for i, question := range q.Questions {
		if strings.TrimSpace(question.Question) == "" {
			return fmt.Errorf("question %d: text is empty", i+1)
		}
		if len(question.Options) < 2 {
			return fmt.Errorf("question %d: needs at least two options", i+1)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return fmt.Errorf("question %d: correct answer %d out of range", i+1, question.CorrectAnswer)
		}
		if question.TimeLimit < 0 {
			return fmt.Errorf("question %d: negative time limit", i+1)
		}
	}

	return nil
}
