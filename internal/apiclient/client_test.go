package apiclient_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/backendtest"
	"github.com/mind-engage/classquiz/internal/session"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

var quiet = apiclient.WithLogger(log.New(io.Discard, "", 0))

func newStore(t *testing.T, token string, role session.Role) *session.Store {
	t.Helper()
	st := session.New(session.NewMemoryKV(), "test")
	if token != "" {
		if err := st.Set(context.Background(), token, role); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return st
}

func TestDoFailsFastWithoutToken(t *testing.T) {
	called := false
	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected")
	})}
	c := apiclient.New("http://example.test", hc, newStore(t, "", ""), quiet)

	_, _, err := c.ActiveQuiz(context.Background())
	if !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if called {
		t.Fatalf("network was used without a token")
	}
}

func TestDoWrapsTransportFailures(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial error")
	})}
	c := apiclient.New("http://example.test", hc, newStore(t, "tok", session.RoleStudent), quiet)

	_, err := c.Questions(context.Background(), "1")
	var te *apiclient.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T (%v)", err, err)
	}
	if apiclient.KindOf(err) != apiclient.KindTransportError {
		t.Fatalf("kind = %s", apiclient.KindOf(err))
	}
}

func TestDoClassifiesStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		switch r.URL.Path {
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"All questions must be answered","status":"error"}`)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"Error fetching questions","status":"error"}`)
		case "/soft":
			_, _ = io.WriteString(w, `{"message":"nope","status":"error"}`)
		case "/garbled":
			_, _ = io.WriteString(w, `{"score":`)
		default:
			_, _ = io.WriteString(w, `{"status":"success","score":3}`)
		}
	}))
	defer srv.Close()
	c := apiclient.New(srv.URL, srv.Client(), newStore(t, "tok", session.RoleStudent), quiet)

	cases := []struct {
		path   string
		kind   apiclient.Kind
		status int
	}{
		{"/bad", apiclient.KindClientError, 400},
		{"/boom", apiclient.KindServerError, 500},
		{"/soft", apiclient.KindClientError, 200},
		{"/garbled", apiclient.KindServerError, 200},
		{"/ok", apiclient.KindSuccess, 0},
	}
	for _, tc := range cases {
		var out apiclient.SubmissionResult
		err := c.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: tc.path, Auth: true}, &out)
		if k := apiclient.KindOf(err); k != tc.kind {
			t.Fatalf("%s: kind = %s, want %s (err %v)", tc.path, k, tc.kind, err)
		}
		if apiclient.StatusOf(err) != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.path, apiclient.StatusOf(err), tc.status)
		}
		if tc.path == "/bad" && apiclient.Message(err) != "All questions must be answered" {
			t.Fatalf("message = %q", apiclient.Message(err))
		}
		if tc.path == "/ok" && out.Score != 3 {
			t.Fatalf("score = %d", out.Score)
		}
	}
}

func TestUnauthorizedClearsStoreAndRunsHookOnce(t *testing.T) {
	b, srv := backendtest.NewServer(t)
	b.Activate(b.AddQuiz("q", backendtest.Question{Text: "x", Options: [4]string{"a", "b", "c", "d"}}))
	st := newStore(t, b.StudentToken(1), session.RoleStudent)
	b.RotateSecret()

	hooks := 0
	c := apiclient.New(srv.URL, srv.Client(), st, quiet,
		apiclient.WithUnauthenticated(func(context.Context) { hooks++ }))

	_, _, err := c.ActiveQuiz(context.Background())
	if apiclient.KindOf(err) != apiclient.KindUnauthenticated {
		t.Fatalf("kind = %s (%v)", apiclient.KindOf(err), err)
	}
	if hooks != 1 {
		t.Fatalf("hook ran %d times", hooks)
	}
	if _, ok, _ := st.Get(context.Background()); ok {
		t.Fatalf("token not cleared")
	}

	// the next call fails locally, without another hook run
	_, err = c.Questions(context.Background(), "1")
	if !errors.Is(err, apiclient.ErrUnauthenticated) || hooks != 1 {
		t.Fatalf("second call err = %v hooks = %d", err, hooks)
	}
}

func TestLoginRejectionIsNotIntercepted(t *testing.T) {
	_, srv := backendtest.NewServer(t)
	st := newStore(t, "", "")
	hooks := 0
	c := apiclient.New(srv.URL, srv.Client(), st, quiet,
		apiclient.WithUnauthenticated(func(context.Context) { hooks++ }))

	_, err := c.AdminLogin(context.Background(), "admin@example.com", "wrong")
	var ce *apiclient.ClientError
	if !errors.As(err, &ce) || ce.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 ClientError", err)
	}
	if ce.Message != "Invalid credentials" {
		t.Fatalf("message = %q", ce.Message)
	}
	if hooks != 0 {
		t.Fatalf("hook ran for an unauthenticated call")
	}
}

func TestStudentEndpoints(t *testing.T) {
	b, srv := backendtest.NewServer(t)
	quizID := b.AddQuiz("Weekly",
		backendtest.Question{ID: 11, Text: "2+2", Options: [4]string{"3", "4", "5", "6"}, Correct: 1},
		backendtest.Question{ID: 12, Text: "3*3", Options: [4]string{"6", "8", "9", "12"}, Correct: 2},
	)
	st := newStore(t, "", "")
	c := apiclient.New(srv.URL, srv.Client(), st, quiet)
	ctx := context.Background()

	reg, err := c.Register(ctx, apiclient.Registration{
		Name: "Asha", RegisterNumber: "R1", ClassName: "1st year", Section: "A", Department: "CSE",
	})
	if err != nil || reg.Token == "" {
		t.Fatalf("register = (%+v, %v)", reg, err)
	}
	if reg.StudentInfo.Name != "Asha" {
		t.Fatalf("student info = %+v", reg.StudentInfo)
	}
	login, err := c.Login(ctx, " R1 ")
	if err != nil || login.Token == "" || login.StudentInfo.RegisterNumber != "R1" {
		t.Fatalf("login = (%+v, %v)", login, err)
	}
	if err := st.Set(ctx, login.Token, session.RoleStudent); err != nil {
		t.Fatalf("store: %v", err)
	}

	if _, found, err := c.ActiveQuiz(ctx); err != nil || found {
		t.Fatalf("no live quiz: found=%v err=%v", found, err)
	}
	b.Activate(quizID)
	aq, found, err := c.ActiveQuiz(ctx)
	if err != nil || !found || aq.Title != "Weekly" {
		t.Fatalf("active = (%+v, %v, %v)", aq, found, err)
	}

	qs, err := c.Questions(ctx, aq.QuizID)
	if err != nil || len(qs) != 2 || qs[0].ID != "11" || qs[1].Options[2] != "9" {
		t.Fatalf("questions = (%+v, %v)", qs, err)
	}

	res, err := c.Submit(ctx, apiclient.Submission{
		QuizID: aq.QuizID, Answers: map[string]int{"11": 1, "12": 0}, TimeTaken: 42,
	})
	if err != nil || res.Score != 1 || res.TotalQuestions != 2 {
		t.Fatalf("submit = (%+v, %v)", res, err)
	}
	att := b.Attempts()
	if len(att) != 1 || att[0].TimeTaken != 42 || att[0].Answers["12"] != 0 {
		t.Fatalf("attempts = %+v", att)
	}

	_, err = c.Login(ctx, "missing")
	if apiclient.KindOf(err) != apiclient.KindClientError || apiclient.StatusOf(err) != 404 {
		t.Fatalf("unknown student err = %v", err)
	}
}

func TestAdminEndpoints(t *testing.T) {
	b, srv := backendtest.NewServer(t)
	st := newStore(t, "", "")
	c := apiclient.New(srv.URL, srv.Client(), st, quiet)
	ctx := context.Background()

	lr, err := c.AdminLogin(ctx, "admin@example.com", "admin-pass")
	if err != nil || lr.Token == "" || lr.Role != "admin" {
		t.Fatalf("admin login = (%+v, %v)", lr, err)
	}
	if err := st.Set(ctx, lr.Token, session.RoleAdmin); err != nil {
		t.Fatalf("store: %v", err)
	}

	sheet := "text,option_a,option_b,option_c,option_d,correct_answer\nCapital of France,Rome,Paris,Oslo,Bern,1\n"
	id, err := c.UploadQuiz(ctx, "week1.csv", strings.NewReader(sheet), "Week 1")
	if err != nil || id == "" {
		t.Fatalf("upload = (%q, %v)", id, err)
	}
	aq, found, err := c.AdminActiveQuiz(ctx)
	if err != nil || !found || aq.QuizID != id || aq.Title != "Week 1" {
		t.Fatalf("active = (%+v, %v, %v)", aq, found, err)
	}

	s := b.AddStudent(backendtest.Student{Name: "Bala", RegisterNumber: "R2", ClassName: "2nd year", Department: "ECE"})
	b.AddAttempt(backendtest.Attempt{StudentID: s.ID, QuizID: b.ActiveQuizID(), Score: 1})

	if _, err := c.StopQuiz(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, found, err := c.AdminActiveQuiz(ctx); err != nil || found {
		t.Fatalf("after stop: found=%v err=%v", found, err)
	}
	if _, err := c.StopQuiz(ctx); apiclient.StatusOf(err) != 404 {
		t.Fatalf("second stop err = %v", err)
	}

	rows, err := c.QuizResults(ctx, id)
	if err != nil || len(rows) != 1 || rows[0].Name != "Bala" || rows[0].Score != 1 {
		t.Fatalf("results = (%+v, %v)", rows, err)
	}

	if msg, err := c.StartQuiz(ctx, id); err != nil || !strings.Contains(msg, "started") {
		t.Fatalf("start = (%q, %v)", msg, err)
	}
}

func TestUploadRejectsUnsupportedFilesLocally(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		t.Fatalf("network used for a rejected file")
		return nil, nil
	})}
	c := apiclient.New("http://example.test", hc, newStore(t, "tok", session.RoleAdmin), quiet)
	_, err := c.UploadQuiz(context.Background(), "notes.pdf", strings.NewReader("x"), "t")
	if !errors.Is(err, apiclient.ErrUnsupportedFile) {
		t.Fatalf("err = %v", err)
	}
	if !apiclient.AllowedUpload("Sheet.XLSX") || apiclient.AllowedUpload("sheet.xls") {
		t.Fatalf("AllowedUpload mismatch")
	}
}
