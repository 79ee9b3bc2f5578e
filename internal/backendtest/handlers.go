package backendtest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "status": "error"})
}

func adminReply(w http.ResponseWriter, status int, msg string, data any) {
	st := "success"
	if status >= 400 {
		st = "error"
	}
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, status, map[string]any{"message": msg, "status": st, "data": data})
}

func (b *Backend) parse(r *http.Request) (jwt.MapClaims, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, false
	}
	b.mu.Lock()
	secret := append([]byte(nil), b.secret...)
	b.mu.Unlock()
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(strings.TrimPrefix(h, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil, false
	}
	return claims, true
}

func (b *Backend) requireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := b.parse(r)
		if !ok {
			fail(w, http.StatusUnauthorized, "Invalid token!")
			return
		}
		id, _ := claims["student_id"].(float64)
		if id == 0 {
			fail(w, http.StatusUnauthorized, "Invalid token content!")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, int(id))))
	})
}

func (b *Backend) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := b.parse(r)
		if !ok || claims["role"] != "admin" {
			adminReply(w, http.StatusUnauthorized, "Invalid token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- student ----

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		RegisterNumber string `json:"register_number"`
		ClassName      string `json:"class_name"`
		Section        string `json:"section"`
		Department     string `json:"department"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Request must be JSON")
		return
	}
	if req.Name == "" || req.RegisterNumber == "" || req.ClassName == "" || req.Section == "" || req.Department == "" {
		fail(w, http.StatusBadRequest, "Missing required fields!")
		return
	}
	b.mu.Lock()
	if _, dup := b.byRegister[req.RegisterNumber]; dup {
		b.mu.Unlock()
		fail(w, http.StatusBadRequest, "Student already registered!")
		return
	}
	s := b.addStudentLocked(Student{
		Name: req.Name, RegisterNumber: req.RegisterNumber,
		ClassName: req.ClassName, Section: req.Section, Department: req.Department,
	})
	tok := b.sign(jwt.MapClaims{"student_id": s.ID, "exp": time.Now().Add(24 * time.Hour).Unix()})
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Student registered successfully!", "student_id": s.ID, "status": "success", "token": tok,
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RegisterNumber string `json:"register_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RegisterNumber == "" {
		fail(w, http.StatusBadRequest, "Missing required fields!")
		return
	}
	b.mu.Lock()
	s := b.byRegister[req.RegisterNumber]
	if s == nil {
		b.mu.Unlock()
		fail(w, http.StatusNotFound, "Student not found!")
		return
	}
	tok := b.sign(jwt.MapClaims{"student_id": s.ID, "exp": time.Now().Add(24 * time.Hour).Unix()})
	info := map[string]any{"id": s.ID, "name": s.Name, "register_number": s.RegisterNumber}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful!", "token": tok, "status": "success", "student_info": info,
	})
}

func (b *Backend) activeQuiz(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	q := b.quizzes[b.active]
	b.mu.Unlock()
	if q == nil {
		fail(w, http.StatusNotFound, "No active quizzes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz_id": q.id, "title": q.title, "status": "success"})
}

func (b *Backend) questions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("quiz_id")
	if raw == "" {
		fail(w, http.StatusBadRequest, "No quiz selected!")
		return
	}
	b.mu.Lock()
	q := b.quizzes[atoi(raw)]
	var list []map[string]any
	if q != nil {
		for _, x := range q.questions {
			list = append(list, map[string]any{"id": x.ID, "question_text": x.Text, "options": x.Options[:]})
		}
	}
	b.mu.Unlock()
	if q == nil {
		fail(w, http.StatusNotFound, "Invalid quiz!")
		return
	}
	if len(list) == 0 {
		fail(w, http.StatusNotFound, "No questions found!")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": list, "status": "success"})
}

func (b *Backend) submit(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.submitCalls++
	gate, started := b.gate, b.started
	b.mu.Unlock()
	if gate != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var req struct {
		QuizID    json.Number    `json:"quiz_id"`
		Answers   map[string]int `json:"answers"`
		TimeTaken int64          `json:"time_taken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.QuizID == "" {
		fail(w, http.StatusBadRequest, "Quiz ID is required")
		return
	}
	if len(req.Answers) == 0 {
		fail(w, http.StatusBadRequest, "Answers must be provided as a dictionary")
		return
	}
	studentID, _ := r.Context().Value(ctxKey{}).(int)

	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.quizzes[atoi(req.QuizID.String())]
	if q == nil {
		fail(w, http.StatusNotFound, "Quiz not found")
		return
	}
	if len(q.questions) == 0 {
		fail(w, http.StatusNotFound, "Quiz has no questions")
		return
	}
	if len(req.Answers) != len(q.questions) {
		fail(w, http.StatusBadRequest, "All questions must be answered")
		return
	}
	score := 0
	for _, x := range q.questions {
		ans, ok := req.Answers[strconv.Itoa(x.ID)]
		if !ok {
			fail(w, http.StatusBadRequest, "All questions must be answered")
			return
		}
		if ans == x.Correct {
			score++
		}
	}
	b.attempts = append(b.attempts, Attempt{
		StudentID: studentID, QuizID: q.id, Score: score, TimeTaken: req.TimeTaken, Answers: req.Answers,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Quiz submitted successfully!", "status": "success",
		"quiz_id": q.id, "score": score, "total_questions": len(q.questions),
	})
}

// ---- admin ----

func (b *Backend) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		adminReply(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}
	b.mu.Lock()
	email, hash := b.adminEmail, b.adminHash
	b.mu.Unlock()
	if req.Email != email || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		adminReply(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	adminReply(w, http.StatusOK, "Login successful", map[string]any{"token": b.AdminToken(), "role": "admin"})
}

func (b *Backend) adminActiveQuiz(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	q := b.quizzes[b.active]
	b.mu.Unlock()
	if q == nil {
		adminReply(w, http.StatusNotFound, "No active quiz found", nil)
		return
	}
	adminReply(w, http.StatusOK, "Active quiz found", map[string]any{"quiz_id": q.id, "status": "active", "title": q.title})
}

// uploadQuiz reads CSV sheets with columns text, option_a..option_d,
// correct_answer. The new quiz goes live immediately.
func (b *Backend) uploadQuiz(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		adminReply(w, http.StatusBadRequest, "No file part", nil)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		adminReply(w, http.StatusBadRequest, "No file part", nil)
		return
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(hdr.Filename)) {
	case ".csv":
	case ".xlsx":
		adminReply(w, http.StatusBadRequest, "xlsx sheets are not readable here; upload CSV", nil)
		return
	default:
		adminReply(w, http.StatusBadRequest, "Invalid file type. Only CSV/XLSX allowed.", nil)
		return
	}
	title := r.FormValue("title")
	if title == "" {
		title = "Quiz-" + time.Now().Format("20060102-150405")
	}

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil || len(recs) < 2 {
		adminReply(w, http.StatusBadRequest, "No valid questions found in the file", nil)
		return
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, need := range []string{"text", "option_a", "option_b", "option_c", "option_d", "correct_answer"} {
		if _, ok := col[need]; !ok {
			adminReply(w, http.StatusBadRequest, "Invalid file format. Required columns missing.", nil)
			return
		}
	}
	var qs []Question
	for _, rec := range recs[1:] {
		correct, err := strconv.Atoi(strings.TrimSpace(rec[col["correct_answer"]]))
		if err != nil {
			adminReply(w, http.StatusBadRequest, fmt.Sprintf("bad correct_answer %q", rec[col["correct_answer"]]), nil)
			return
		}
		qs = append(qs, Question{
			Text:    rec[col["text"]],
			Options: [4]string{rec[col["option_a"]], rec[col["option_b"]], rec[col["option_c"]], rec[col["option_d"]]},
			Correct: correct,
		})
	}
	id := b.AddQuiz(title, qs...)
	b.Activate(id)
	adminReply(w, http.StatusOK, "File uploaded and questions added successfully!", map[string]any{"quiz_id": id})
}

func (b *Backend) startQuiz(w http.ResponseWriter, r *http.Request) {
	id := atoi(chi.URLParam(r, "quizID"))
	if id == 0 {
		adminReply(w, http.StatusNotFound, "Not Found", nil)
		return
	}
	b.Activate(id)
	adminReply(w, http.StatusOK, fmt.Sprintf("Quiz %d started!", id), nil)
}

func (b *Backend) stopQuiz(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	was := b.active
	b.active = 0
	b.mu.Unlock()
	if was == 0 {
		adminReply(w, http.StatusNotFound, "No active quiz found", nil)
		return
	}
	adminReply(w, http.StatusOK, "Quiz stopped successfully!", nil)
}

func (b *Backend) quizResults(w http.ResponseWriter, r *http.Request) {
	id := atoi(chi.URLParam(r, "quizID"))
	b.mu.Lock()
	rows := b.resultsFor(id)
	b.mu.Unlock()
	adminReply(w, http.StatusOK, "Quiz results fetched successfully", rows)
}
