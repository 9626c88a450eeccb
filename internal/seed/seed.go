// Package seed provides the demo course used by cmd/seed-demo and by the
// server when it runs on the in-memory store.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/service"
)

// DemoCourse is the course the demo exam belongs to.
var DemoCourse = model.Course{
	ID:    uuid.MustParse("0b7c2f4e-5a61-4d3e-9f10-3c8a2b6d1e01"),
	Title: "Introduction to Networking",
}

// DemoUser is the participant the demo token is issued for.
var DemoUser = model.User{
	ID:        "demo-user",
	Email:     "demo@akademi.local",
	FirstName: "Demo",
	LastName:  "Student",
}

type demoQuestion struct {
	text    string
	options []string
	answer  string
}

var demoQuestions = []demoQuestion{
	{"Which layer of the OSI model routes packets?", []string{"Physical", "Data link", "Network", "Transport"}, "Network"},
	{"Which protocol resolves an IPv4 address to a MAC address?", []string{"ARP", "DNS", "DHCP", "ICMP"}, "ARP"},
	{"What is the default port of HTTPS?", []string{"80", "443", "8080", "22"}, "443"},
	{"Which transport protocol is connectionless?", []string{"TCP", "UDP"}, "UDP"},
	{"How many bits long is an IPv6 address?", []string{"32", "64", "128", "256"}, "128"},
}

// DemoExam creates the demo exam for courseID unless the course already has
// an active exam, which is returned instead.
func DemoExam(ctx context.Context, exams repository.ExamStore, catalog *service.ExamCatalog, courseID uuid.UUID) (*model.Exam, bool, error) {
	existing, err := exams.GetActiveExamForCourse(ctx, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("check existing exam: %w", err)
	}

	exam := &model.Exam{
		CourseID:        courseID,
		Title:           "Networking Fundamentals: Final Exam",
		DurationMinutes: 30,
		PassingGrade:    model.DefaultPassingGrade,
		IsActive:        true,
	}
	if err := exams.CreateExam(ctx, exam); err != nil {
		return nil, false, fmt.Errorf("create exam: %w", err)
	}

	for i, dq := range demoQuestions {
		q := &model.ExamQuestion{
			ExamID:        exam.ID,
			QuestionText:  dq.text,
			Options:       dq.options,
			CorrectAnswer: dq.answer,
			OrderNum:      (i + 1) * 10,
			Points:        model.DefaultQuestionPoints,
		}
		if err := catalog.AddQuestion(ctx, q); err != nil {
			return nil, false, fmt.Errorf("add question %d: %w", i+1, err)
		}
	}
	exam.TotalQuestions = len(demoQuestions)
	return exam, true, nil
}

// SyncDemoQuestions aligns an existing exam with the demo question set.
// Questions whose text is no longer part of the set are removed and missing
// ones are appended after the current last question.
func SyncDemoQuestions(ctx context.Context, catalog *service.ExamCatalog, examID uuid.UUID) (added, removed int, err error) {
	current, err := catalog.GetQuestions(ctx, examID)
	if err != nil {
		return 0, 0, err
	}

	wanted := make(map[string]bool, len(demoQuestions))
	for _, dq := range demoQuestions {
		wanted[dq.text] = true
	}
	have := make(map[string]bool, len(current))
	lastOrder := 0
	for _, q := range current {
		if q.OrderNum > lastOrder {
			lastOrder = q.OrderNum
		}
		if !wanted[q.QuestionText] {
			if err := catalog.RemoveQuestion(ctx, examID, q.ID); err != nil {
				return added, removed, fmt.Errorf("remove question %s: %w", q.ID, err)
			}
			removed++
			continue
		}
		have[q.QuestionText] = true
	}

	for _, dq := range demoQuestions {
		if have[dq.text] {
			continue
		}
		lastOrder += 10
		q := &model.ExamQuestion{
			ExamID:        examID,
			QuestionText:  dq.text,
			Options:       dq.options,
			CorrectAnswer: dq.answer,
			OrderNum:      lastOrder,
			Points:        model.DefaultQuestionPoints,
		}
		if err := catalog.AddQuestion(ctx, q); err != nil {
			return added, removed, fmt.Errorf("add question %q: %w", dq.text, err)
		}
		added++
	}
	return added, removed, nil
}
