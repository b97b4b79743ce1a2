package util

import "errors"

var (
	// NotFound class
	ErrUserNotFound       = errors.New("user not found")
	ErrTestNotFound       = errors.New("test not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAnswerNotFound     = errors.New("answer not found for this question")
	ErrAppealNotFound     = errors.New("appeal not found")

	// Conflict / IllegalState class
	ErrEmailRegistered       = errors.New("email already registered")
	ErrTestAlreadySubmitted  = errors.New("test already submitted")
	ErrTestWindowNotOpen     = errors.New("test window has not opened yet")
	ErrTestWindowClosed      = errors.New("test window has closed")
	ErrTestAlreadyStarted    = errors.New("test has already started")
	ErrTestCancelled         = errors.New("test has been cancelled")
	ErrAppealPending         = errors.New("this submission already has a pending appeal")
	ErrAppealAlreadyResolved = errors.New("this appeal has already been resolved")
	ErrSubmissionNotGraded   = errors.New("submission has not been graded yet")

	// Validation class
	ErrInvalidQuestion = errors.New("MCQ questions must have exactly one correct option")

	// AccessDenied class
	ErrPermissionDenied = errors.New("permission denied")
)
