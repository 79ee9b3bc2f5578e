package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type Question struct {
	ID      ID       `json:"id"`
	Text    string   `json:"question_text"`
	Options []string `json:"options"`
}

type ActiveQuiz struct {
	QuizID ID     `json:"quiz_id"`
	Title  string `json:"title"`
}

// Submission is the wire shape of a quiz attempt. Answer keys are question
// ids rendered as strings.
type Submission struct {
	Answers   map[string]int `json:"answers"`
	QuizID    ID             `json:"quiz_id"`
	TimeTaken int64          `json:"time_taken"`
}

type SubmissionResult struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	Message        string `json:"message"`
}

type Registration struct {
	Name           string `json:"name"`
	RegisterNumber string `json:"register_number"`
	ClassName      string `json:"class_name"`
	Section        string `json:"section"`
	Department     string `json:"department"`
}

type StudentInfo struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	RegisterNumber string `json:"register_number"`
}

type LoginResult struct {
	Token       string      `json:"token"`
	Message     string      `json:"message"`
	StudentID   ID          `json:"student_id"`
	StudentInfo StudentInfo `json:"student_info"`
}

// Register creates a student account. The backend answers with a token.
func (c *Client) Register(ctx context.Context, r Registration) (LoginResult, error) {
	var out LoginResult
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/student/register", Body: r}, &out)
	if err == nil && out.StudentInfo.ID == "" {
		out.StudentInfo = StudentInfo{ID: out.StudentID, Name: r.Name, RegisterNumber: r.RegisterNumber}
	}
	return out, err
}

func (c *Client) Login(ctx context.Context, registerNumber string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"register_number": strings.TrimSpace(registerNumber)}
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/student/login", Body: body}, &out)
	return out, err
}

// ActiveQuiz returns found=false when the backend has no live quiz (404 or
// an empty id).
func (c *Client) ActiveQuiz(ctx context.Context) (ActiveQuiz, bool, error) {
	var out ActiveQuiz
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/student/get_active_quiz", Auth: true}, &out)
	if err != nil {
		if StatusOf(err) == http.StatusNotFound && KindOf(err) == KindClientError {
			return ActiveQuiz{}, false, nil
		}
		return ActiveQuiz{}, false, err
	}
	return out, out.QuizID != "", nil
}

func (c *Client) Questions(ctx context.Context, quizID ID) ([]Question, error) {
	var out struct {
		Questions []Question `json:"questions"`
	}
	q := url.Values{}
	q.Set("quiz_id", quizID.String())
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/student/get_questions", Query: q, Auth: true}, &out)
	return out.Questions, err
}

func (c *Client) Submit(ctx context.Context, s Submission) (SubmissionResult, error) {
	var out SubmissionResult
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/student/submit_quiz", Body: s, Auth: true}, &out)
	return out, err
}
