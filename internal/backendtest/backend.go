// Package backendtest is an in-memory stand-in for the quiz backend. It
// speaks the same HTTP contract as the real service and is only meant for
// tests.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Question struct {
	ID      int
	Text    string
	Options [4]string
	Correct int
}

type Student struct {
	ID             int
	Name           string
	RegisterNumber string
	ClassName      string
	Section        string
	Department     string
}

type Attempt struct {
	StudentID int
	QuizID    int
	Score     int
	TimeTaken int64
	Answers   map[string]int
}

type quiz struct {
	id        int
	title     string
	questions []Question
}

type Backend struct {
	mu sync.Mutex

	secret     []byte
	adminEmail string
	adminHash  []byte

	students   map[int]*Student
	byRegister map[string]*Student
	quizzes    map[int]*quiz
	active     int
	attempts   []Attempt

	nextStudent, nextQuiz, nextQuestion int

	failures    map[string][]int
	submitCalls int
	gate        chan struct{}
	started     chan struct{}
}

func New() *Backend {
	b := &Backend{
		secret:     []byte("backendtest-secret"),
		students:   map[int]*Student{},
		byRegister: map[string]*Student{},
		quizzes:    map[int]*quiz{},
		failures:   map[string][]int{},
	}
	b.SetAdmin("admin@example.com", "admin-pass")
	return b
}

// NewServer starts the backend on an httptest server closed with t.
func NewServer(t testing.TB) (*Backend, *httptest.Server) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.injectFailures)

	r.Route("/student", func(sr chi.Router) {
		sr.Post("/register", b.register)
		sr.Post("/login", b.login)
		sr.Group(func(pr chi.Router) {
			pr.Use(b.requireStudent)
			pr.Get("/get_active_quiz", b.activeQuiz)
			pr.Get("/get_questions", b.questions)
			pr.Post("/submit_quiz", b.submit)
		})
	})
	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/login", b.adminLogin)
		ar.Group(func(pr chi.Router) {
			pr.Use(b.requireAdmin)
			pr.Get("/active_quiz", b.adminActiveQuiz)
			pr.Post("/upload_quiz", b.uploadQuiz)
			pr.Post("/start_quiz/{quizID}", b.startQuiz)
			pr.Post("/stop_quiz", b.stopQuiz)
			pr.Get("/quiz_results/{quizID}", b.quizResults)
		})
	})
	return r
}

// ---- setup ----

func (b *Backend) SetAdmin(email, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adminEmail = email
	b.adminHash = hash
}

// AddQuiz stores a quiz and returns its id. Question ids are assigned
// when zero.
func (b *Backend) AddQuiz(title string, qs ...Question) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextQuiz++
	q := &quiz{id: b.nextQuiz, title: title}
	for _, x := range qs {
		if x.ID == 0 {
			b.nextQuestion++
			x.ID = b.nextQuestion
		}
		q.questions = append(q.questions, x)
	}
	b.quizzes[q.id] = q
	return q.id
}

func (b *Backend) Activate(quizID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = quizID
}

func (b *Backend) ActiveQuizID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *Backend) Questions(quizID int) []Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q := b.quizzes[quizID]; q != nil {
		return append([]Question(nil), q.questions...)
	}
	return nil
}

func (b *Backend) AddStudent(s Student) Student {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.addStudentLocked(s)
}

func (b *Backend) addStudentLocked(s Student) *Student {
	b.nextStudent++
	s.ID = b.nextStudent
	st := &s
	b.students[s.ID] = st
	b.byRegister[s.RegisterNumber] = st
	return st
}

// StudentToken issues a token for id the way login would.
func (b *Backend) StudentToken(id int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sign(jwt.MapClaims{"student_id": id, "exp": time.Now().Add(24 * time.Hour).Unix()})
}

func (b *Backend) AdminToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sign(jwt.MapClaims{"role": "admin", "iat": time.Now().Unix(), "exp": time.Now().Add(3 * time.Hour).Unix()})
}

// RotateSecret invalidates every token issued so far.
func (b *Backend) RotateSecret() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secret = append(b.secret, 'x')
}

// AddAttempt records a finished attempt directly.
func (b *Backend) AddAttempt(a Attempt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = append(b.attempts, a)
}

func (b *Backend) Attempts() []Attempt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Attempt(nil), b.attempts...)
}

// ---- failure injection ----

// FailNext makes the next calls to path answer with the given statuses,
// one per call, before normal handling resumes.
func (b *Backend) FailNext(path string, statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = append(b.failures[path], statuses...)
}

// BlockSubmit holds submit requests until release is called. started
// receives once per submit that reaches the handler.
func (b *Backend) BlockSubmit() (started <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	b.started = make(chan struct{}, 16)
	gate := b.gate
	var once sync.Once
	return b.started, func() { once.Do(func() { close(gate) }) }
}

func (b *Backend) SubmitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitCalls
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		queue := b.failures[r.URL.Path]
		status := 0
		if len(queue) > 0 {
			status, b.failures[r.URL.Path] = queue[0], queue[1:]
			if r.URL.Path == "/student/submit_quiz" {
				b.submitCalls++
			}
		}
		b.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]any{"message": "injected failure", "status": "error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- helpers ----

func (b *Backend) sign(claims jwt.MapClaims) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

func (b *Backend) resultsFor(quizID int) []map[string]any {
	rows := make([]map[string]any, 0)
	var picked []Attempt
	for _, a := range b.attempts {
		if a.QuizID == quizID {
			picked = append(picked, a)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Score > picked[j].Score })
	for _, a := range picked {
		s := b.students[a.StudentID]
		if s == nil {
			continue
		}
		rows = append(rows, map[string]any{
			"name":       s.Name,
			"class_name": s.ClassName,
			"department": s.Department,
			"score":      a.Score,
		})
	}
	return rows
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
