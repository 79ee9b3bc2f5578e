package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/journal"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/session"
	"github.com/mind-engage/classquiz/internal/storage"
	"github.com/mind-engage/classquiz/internal/views"
)

// Deps is everything a command needs. Store is the token store for the
// active profile; Client must have been built on top of it.
type Deps struct {
	Client   *apiclient.Client
	Store    *session.Store
	Recorder quizsession.Recorder // optional
	Exports  storage.BlobStore    // optional
	Journal  *journal.EventRepo   // optional
	Clock    func() time.Time
}

var ErrUsage = errors.New("usage")

func Run(ctx context.Context, args []string, in io.Reader, out io.Writer, d Deps) error {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if len(args) == 0 {
		printHelp(out)
		return ErrUsage
	}
	reader := bufio.NewReader(in)

	switch args[0] {
	case "help", "-h", "--help":
		printHelp(out)
		return nil
	case "register":
		return register(ctx, reader, out, d)
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("%w: quizctl login <register-number>", ErrUsage)
		}
		return login(ctx, out, d, args[1])
	case "whoami":
		return whoami(ctx, out, d)
	case "logout":
		if err := d.Store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "take":
		return take(ctx, reader, out, d)
	case "history":
		return history(ctx, out, d)
	case "admin":
		return admin(ctx, args[1:], out, d)
	}
	printHelp(out)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  register")
	fmt.Fprintln(out, "  login <register-number>")
	fmt.Fprintln(out, "  whoami")
	fmt.Fprintln(out, "  take")
	fmt.Fprintln(out, "  history")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  admin login <email> <password>")
	fmt.Fprintln(out, "  admin active")
	fmt.Fprintln(out, "  admin upload <file.xlsx|file.csv> [title]")
	fmt.Fprintln(out, "  admin start <quiz-id>")
	fmt.Fprintln(out, "  admin stop")
	fmt.Fprintln(out, "  admin results <quiz-id> [-department d] [-class c] [-export name.csv]")
	fmt.Fprintln(out, "  admin logout")
}

func register(ctx context.Context, reader *bufio.Reader, out io.Writer, d Deps) error {
	var r apiclient.Registration
	var err error
	if r.Name, err = promptLine(reader, out, "Name: "); err != nil {
		return err
	}
	if r.RegisterNumber, err = promptLine(reader, out, "Register number: "); err != nil {
		return err
	}
	if r.ClassName, err = promptChoice(reader, out, "Class", views.ClassOptions); err != nil {
		return err
	}
	if r.Section, err = promptChoice(reader, out, "Section", views.SectionOptions); err != nil {
		return err
	}
	if r.Department, err = promptChoice(reader, out, "Department", views.DepartmentOptions); err != nil {
		return err
	}
	r, err = views.CheckRegistration(r)
	if err != nil {
		return err
	}

	res, err := d.Client.Register(ctx, r)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	if err := d.Store.Set(ctx, res.Token, session.RoleStudent); err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered %s (%s). You are logged in.\n", r.Name, r.RegisterNumber)
	return nil
}

func login(ctx context.Context, out io.Writer, d Deps, registerNumber string) error {
	res, err := d.Client.Login(ctx, registerNumber)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	if err := d.Store.Set(ctx, res.Token, session.RoleStudent); err != nil {
		return err
	}
	name := res.StudentInfo.Name
	if name == "" {
		name = strings.TrimSpace(registerNumber)
	}
	fmt.Fprintf(out, "Welcome, %s.\n", name)
	return nil
}

func whoami(ctx context.Context, out io.Writer, d Deps) error {
	cred, ok, err := d.Store.Get(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(out, "role: %s\n", cred.Role)
	claims, err := session.Inspect(cred.Token)
	if err != nil {
		fmt.Fprintln(out, "token: opaque")
		return nil
	}
	if claims.StudentID != "" {
		fmt.Fprintf(out, "student id: %s\n", claims.StudentID)
	}
	if claims.ExpiresAt != nil {
		state := "valid"
		if claims.ExpiredAt(d.Clock()) {
			state = "expired"
		}
		fmt.Fprintf(out, "expires: %s (%s)\n", claims.ExpiresAt.Time.Local().Format(time.RFC1123), state)
	}
	return nil
}

// history prints the journaled quiz events of this profile.
func history(ctx context.Context, out io.Writer, d Deps) error {
	if d.Journal == nil {
		fmt.Fprintln(out, "No journal with the memory store.")
		return nil
	}
	events, err := d.Journal.List(ctx, d.Store.Scope(), 0, 200)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No quiz activity recorded.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %-18s %s\n", time.Unix(e.CreatedAt, 0).Local().Format("2006-01-02 15:04:05"), e.Type, e.DataJSON)
	}
	return nil
}
