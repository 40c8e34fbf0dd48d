package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/auth"
	"github.com/agustinboza/CuralisPatientMobile/internal/booking"
	"github.com/agustinboza/CuralisPatientMobile/internal/care"
	"github.com/agustinboza/CuralisPatientMobile/internal/config"
	"github.com/agustinboza/CuralisPatientMobile/internal/consent"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

type app struct {
	cfg    config.Config
	client *api.Client
	store  *auth.Store
}

func main() {
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var store *auth.Store
	client := api.NewClient(cfg.APIBaseURL,
		api.WithTokenSource(api.TokenFunc(func() string {
			if store == nil {
				return ""
			}
			return store.Token()
		})),
		api.WithUnauthorizedHook(func() {
			if store != nil {
				store.Clear()
			}
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
		}),
	)

	store, err = auth.NewStore(cfg.DataDir, client)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}

	a := &app{cfg: cfg, client: client, store: store}

	if len(os.Args) < 2 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cmdErr error
	switch os.Args[1] {
	case "login":
		cmdErr = a.login(ctx, os.Args[2:])
	case "logout":
		cmdErr = a.store.Logout(ctx)
	case "profile":
		cmdErr = a.profile(ctx)
	case "procedures":
		cmdErr = a.procedures(ctx)
	case "exam":
		cmdErr = a.exam(ctx, os.Args[2:])
	case "followup":
		cmdErr = a.followup(ctx, os.Args[2:])
	case "slots":
		cmdErr = a.slots(ctx, os.Args[2:])
	case "book":
		cmdErr = a.book(ctx, os.Args[2:])
	case "consent":
		cmdErr = a.consentCmd(ctx, os.Args[2:])
	case "checkin":
		cancel() // the interview manages its own lifetime
		cmdErr = a.checkin(os.Args[2:])
	default:
		usage()
	}

	if cmdErr != nil {
		log.Fatalf("%s: %v", os.Args[1], cmdErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: curalis <command> [args]

commands:
  login <email> <password>
  logout
  profile
  procedures
  exam <exam-id> <pending|uploaded|completed>
  followup <weight-kg> <wellness 1-10> <protein-g> <exercise-h> [notes...]
  slots <doctor-id> <YYYY-MM-DD>
  book <doctor-id> <start RFC3339>
  consent <width> <height> <svg-path> [svg-path...]
  checkin <appointment-id> [procedure-type]`)
	os.Exit(2)
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		usage()
	}
	user, err := a.store.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func (a *app) profile(ctx context.Context) error {
	user, err := a.client.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> role=%s consent_complete=%v\n", user.Name, user.Email, user.Role, user.Consent.Complete)
	return nil
}

func (a *app) procedures(ctx context.Context) error {
	tracker := care.NewTracker(a.client)
	if err := tracker.Load(ctx); err != nil {
		return err
	}

	for _, p := range tracker.Procedures() {
		fmt.Printf("%s  %s [%s]\n", p.ID, p.Name, p.Status)
		for _, e := range p.Exams {
			due := ""
			if e.DueDate != nil {
				due = " due " + e.DueDate.Format("2006-01-02")
			}
			fmt.Printf("  %s  %s [%s]%s\n", e.ID, e.Name, e.Status, due)
		}
	}
	return nil
}

func (a *app) exam(ctx context.Context, args []string) error {
	if len(args) != 2 {
		usage()
	}
	examID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid exam id: %w", err)
	}

	tracker := care.NewTracker(a.client)
	if err := tracker.Load(ctx); err != nil {
		return err
	}
	if err := tracker.ToggleExam(ctx, examID, model.ExamStatus(args[1])); err != nil {
		return err
	}

	status, _ := tracker.ExamStatus(examID)
	fmt.Printf("exam %s is now %s\n", examID, status)
	return nil
}

func (a *app) followup(ctx context.Context, args []string) error {
	if len(args) < 4 {
		usage()
	}
	weight, _ := strconv.ParseFloat(args[0], 64)
	wellness, _ := strconv.Atoi(args[1])
	protein, _ := strconv.ParseFloat(args[2], 64)
	exercise, _ := strconv.ParseFloat(args[3], 64)
	notes := strings.Join(args[4:], " ")

	tracker := care.NewTracker(a.client)
	pending, err := tracker.PendingFollowUp(ctx)
	if err != nil {
		return err
	}

	fu, err := tracker.SubmitFollowUp(ctx, pending.ID, api.SubmitFollowUpRequest{
		WeightKg:      weight,
		WellnessScore: wellness,
		ProteinGrams:  protein,
		ExerciseHours: exercise,
		Notes:         notes,
	})
	if err != nil {
		return err
	}
	fmt.Printf("follow-up %s completed at %s\n", fu.ID, fu.CompletedAt.Format(time.RFC3339))
	return nil
}

func (a *app) slots(ctx context.Context, args []string) error {
	if len(args) != 2 {
		usage()
	}
	doctorID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid doctor id: %w", err)
	}

	cal := booking.NewCalendar(a.client, doctorID)
	slots, err := cal.LoadDay(ctx, args[1])
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("no free slots")
		return nil
	}
	for _, s := range slots {
		fmt.Printf("%s - %s\n", s.StartTime.Format(time.RFC3339), s.EndTime.Format("15:04"))
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	if len(args) != 2 {
		usage()
	}
	doctorID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid doctor id: %w", err)
	}
	start, err := time.Parse(time.RFC3339, args[1])
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}

	cal := booking.NewCalendar(a.client, doctorID)
	date := start.UTC().Format("2006-01-02")
	slots, err := cal.LoadDay(ctx, date)
	if err != nil {
		return err
	}

	for _, s := range slots {
		if s.StartTime.Equal(start) {
			appt, err := cal.Book(ctx, s, "")
			if err != nil {
				return err
			}
			fmt.Printf("booked appointment %s at %s\n", appt.ID, appt.StartTime.Format(time.RFC3339))
			return nil
		}
	}
	return fmt.Errorf("no free slot at %s on %s", args[1], date)
}

func (a *app) consentCmd(ctx context.Context, args []string) error {
	if len(args) < 3 {
		usage()
	}
	width, _ := strconv.Atoi(args[0])
	height, _ := strconv.Atoi(args[1])

	sig := model.Signature{
		Paths:      args[2:],
		Width:      width,
		Height:     height,
		CapturedAt: time.Now(),
	}

	status, err := a.client.SubmitSignature(ctx, sig)
	if err != nil {
		return err
	}

	user, err := a.store.Current()
	if err != nil {
		return err
	}

	path, err := consent.WriteDocument(a.cfg.DataDir, sig, user.Name)
	if err != nil {
		return err
	}
	fmt.Printf("signature submitted (complete=%v), document at %s\n", status.Complete, path)
	return nil
}
