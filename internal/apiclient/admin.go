package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mind-engage/classquiz/internal/results"
)

// admin endpoints wrap payloads as {message, status, data}
type adminEnvelope[T any] struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    T      `json:"data"`
}

type AdminLoginResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type AdminActiveQuiz struct {
	QuizID ID     `json:"quiz_id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

func (c *Client) AdminLogin(ctx context.Context, email, password string) (AdminLoginResult, error) {
	var out adminEnvelope[AdminLoginResult]
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/admin/login", Body: body}, &out)
	if err == nil && out.Data.Role == "" {
		out.Data.Role = "admin"
	}
	return out.Data, err
}

// AdminActiveQuiz returns found=false when no quiz is live.
func (c *Client) AdminActiveQuiz(ctx context.Context) (AdminActiveQuiz, bool, error) {
	var out adminEnvelope[AdminActiveQuiz]
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/admin/active_quiz", Auth: true}, &out)
	if err != nil {
		if KindOf(err) == KindClientError && StatusOf(err) == http.StatusNotFound {
			return AdminActiveQuiz{}, false, nil
		}
		return AdminActiveQuiz{}, false, err
	}
	return out.Data, out.Data.QuizID != "", nil
}

// AllowedUpload reports whether the backend will accept the file type.
func AllowedUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// DefaultTitle names an upload after the moment it was made.
func DefaultTitle(now time.Time) string {
	return "Quiz-" + now.UTC().Format(time.RFC3339)
}

// UploadQuiz sends a question sheet. Unsupported file types are rejected
// locally with ErrUnsupportedFile.
func (c *Client) UploadQuiz(ctx context.Context, filename string, r io.Reader, title string) (ID, error) {
	if !AllowedUpload(filename) {
		return "", ErrUnsupportedFile
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", title); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out adminEnvelope[struct {
		QuizID ID `json:"quiz_id"`
	}]
	err = c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/admin/upload_quiz",
		Raw:         &buf,
		ContentType: mw.FormDataContentType(),
		Auth:        true,
	}, &out)
	return out.Data.QuizID, err
}

func (c *Client) StartQuiz(ctx context.Context, quizID ID) (string, error) {
	var out adminEnvelope[struct{}]
	path := "/admin/start_quiz/" + url.PathEscape(quizID.String())
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Auth: true}, &out)
	return out.Message, err
}

func (c *Client) StopQuiz(ctx context.Context) (string, error) {
	var out adminEnvelope[struct{}]
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/admin/stop_quiz", Auth: true}, &out)
	return out.Message, err
}

func (c *Client) QuizResults(ctx context.Context, quizID ID) ([]results.Entry, error) {
	var out adminEnvelope[[]results.Entry]
	path := "/admin/quiz_results/" + url.PathEscape(quizID.String())
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Auth: true}, &out)
	return out.Data, err
}
