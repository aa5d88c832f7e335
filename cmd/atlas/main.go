package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/app"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/config"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/store"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	if errRun := run(context.Background(), os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses global flags, boots the application core, signs in when
// credentials are given, and dispatches the subcommand.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("atlas", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env ATLAS_CONFIG)")
	asUser := fs.String("as", "", "username or email to sign in as")
	password := fs.String("password", "", "password for -as")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: atlas [flags] <command>, one of: migrate register users add list stats update delete protect unprotect archive archived unarchive reset")
	}
	command, commandArgs := rest[0], rest[1:]

	if command == "migrate" {
		return app.Migrate(ctx, appCfg)
	}

	application, errSetup := app.Setup(ctx, appCfg)
	if errSetup != nil {
		return errSetup
	}
	if strings.TrimSpace(*asUser) != "" {
		if _, errLogin := application.Users.Login(ctx, *asUser, *password); errLogin != nil {
			return errLogin
		}
	}

	switch command {
	case "register":
		return runRegister(ctx, application, commandArgs)
	case "users":
		return runUsers(ctx, application)
	case "add":
		return runAdd(ctx, application, commandArgs)
	case "list":
		return runList(ctx, application, commandArgs)
	case "stats":
		return runStats(ctx, application, commandArgs)
	case "update":
		return runUpdate(ctx, application, commandArgs)
	case "delete":
		return runDelete(ctx, application, commandArgs)
	case "protect":
		return runSetProtected(ctx, application, commandArgs, true)
	case "unprotect":
		return runSetProtected(ctx, application, commandArgs, false)
	case "archive":
		return runArchive(ctx, application, commandArgs)
	case "archived":
		return runArchived(ctx, application, commandArgs)
	case "unarchive":
		return runUnarchive(ctx, application, commandArgs)
	case "reset":
		return runReset(ctx, application, commandArgs)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runRegister(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "username, 3-15 letters and numbers")
	password := fs.String("password", "", "password")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	phone := fs.String("phone", "", "10-digit phone number")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	user, err := application.Users.Register(ctx, store.RegisterData{
		Email:     *email,
		Username:  *username,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
		Phone:     *phone,
	})
	if err != nil {
		return err
	}
	log.Infof("registered user %d (%s)", user.ID, user.Username)
	return nil
}

func runUsers(ctx context.Context, application *app.App) error {
	users, err := application.Users.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		fmt.Printf("%d\t%s\t%s\t%s %s\t%s\n", user.ID, user.Username, user.Email, user.FirstName, user.LastName, role)
	}
	return nil
}

func runAdd(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	steps := fs.Int64("steps", 0, "step count")
	date := fs.Int64("date", 0, "unix timestamp, defaults to now")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	activity, err := application.Activities.AddActivity(ctx, *steps, *date)
	if err != nil {
		return err
	}
	log.Infof("added activity %d: %d steps", activity.ID, activity.Steps)
	return nil
}

func runList(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	userID := fs.Uint64("user", 0, "list another user's activities by id")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	var activities []models.Activity
	if *userID != 0 {
		rows, err := application.Activities.GetActivitiesByUserID(ctx, *userID)
		if err != nil {
			return err
		}
		activities = rows
	} else {
		if err := application.Activities.Reload(ctx); err != nil {
			return err
		}
		activities = application.Activities.Activities()
	}

	for _, activity := range activities {
		marker := ""
		if activity.IsProtected {
			marker = "\tprotected"
		}
		fmt.Printf("%d\t%s\t%d steps%s\n", activity.ID, formatDate(activity.Date), activity.Steps, marker)
	}
	return nil
}

func runStats(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	userID := fs.Uint64("user", 0, "summarize another user's activities by id")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	var (
		summary store.Summary
		err     error
	)
	if *userID != 0 {
		summary, err = application.Activities.SummarizeForUser(ctx, *userID)
	} else {
		summary, err = application.Activities.Summarize(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("activities\t%d\n", summary.Count)
	fmt.Printf("total steps\t%d\n", summary.Total)
	fmt.Printf("average\t%d\n", summary.Average)
	fmt.Printf("max\t%d\n", summary.Max)
	fmt.Printf("min\t%d\n", summary.Min)
	return nil
}

func runUpdate(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "activity id")
	steps := fs.Int64("steps", 0, "new step count")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *id == 0 {
		return fmt.Errorf("update requires -id")
	}
	return application.Activities.UpdateActivity(ctx, *id, *steps)
}

func runDelete(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "activity id")
	all := fs.Bool("all", false, "delete all own activities")
	unprotected := fs.Bool("unprotected", false, "delete all own unprotected activities")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	switch {
	case *all:
		return application.Activities.DeleteAllActivities(ctx)
	case *unprotected:
		return application.Activities.DeleteAllUnprotected(ctx)
	case *id != 0:
		return application.Activities.DeleteActivity(ctx, *id)
	default:
		return fmt.Errorf("delete requires -id, -all, or -unprotected")
	}
}

func runSetProtected(ctx context.Context, application *app.App, args []string, protected bool) error {
	fs := flag.NewFlagSet("protect", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "activity id")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *id == 0 {
		return fmt.Errorf("requires -id")
	}
	if protected {
		return application.Activities.ProtectActivity(ctx, *id)
	}
	return application.Activities.UnprotectActivity(ctx, *id)
}

// runArchive moves an activity into the archive: copy first, then delete the
// source so a failed copy never loses the row.
func runArchive(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "activity id")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *id == 0 {
		return fmt.Errorf("archive requires -id")
	}

	if err := application.Activities.Reload(ctx); err != nil {
		return err
	}
	var source *models.Activity
	for _, activity := range application.Activities.Activities() {
		if activity.ID == *id {
			source = &activity
			break
		}
	}
	if source == nil {
		return fmt.Errorf("activity %d not found", *id)
	}

	if _, err := application.Archive.ArchiveActivity(ctx, source.Steps, source.Date); err != nil {
		return err
	}
	return application.Activities.DeleteActivity(ctx, source.ID)
}

func runArchived(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("archived", flag.ContinueOnError)
	userID := fs.Uint64("user", 0, "list another user's archive by id")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	var rows []models.ArchivedActivity
	if *userID != 0 {
		got, err := application.Archive.GetArchivedActivitiesByUserID(ctx, *userID)
		if err != nil {
			return err
		}
		rows = got
	} else {
		if err := application.Archive.Reload(ctx); err != nil {
			return err
		}
		rows = application.Archive.ArchivedActivities()
	}

	for _, archived := range rows {
		fmt.Printf("%d\t%s\t%d steps\tarchived %s\n", archived.ID, formatDate(archived.Date), archived.Steps, formatDate(archived.ArchivedAt))
	}
	return nil
}

// runUnarchive restores an archived entry as a fresh activity, then drops the
// archive copy.
func runUnarchive(ctx context.Context, application *app.App, args []string) error {
	fs := flag.NewFlagSet("unarchive", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "archived activity id")
	purge := fs.Bool("purge", false, "delete permanently instead of restoring")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *id == 0 {
		return fmt.Errorf("unarchive requires -id")
	}

	if *purge {
		return application.Archive.DeleteArchivedActivity(ctx, *id)
	}

	if err := application.Archive.Reload(ctx); err != nil {
		return err
	}
	var source *models.ArchivedActivity
	for _, archived := range application.Archive.ArchivedActivities() {
		if archived.ID == *id {
			source = &archived
			break
		}
	}
	if source == nil {
		return fmt.Errorf("archived activity %d not found", *id)
	}

	if _, err := application.Activities.AddActivity(ctx, source.Steps, source.Date); err != nil {
		return err
	}
	return application.Archive.UnarchiveActivity(ctx, source.ID)
}

// runReset drives the password reset workflow: request, approve, complete,
// cancel, and pending.
func runReset(ctx context.Context, application *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: atlas reset <request|approve|complete|cancel|pending>")
	}
	action, actionArgs := args[0], args[1:]

	fs := flag.NewFlagSet("reset "+action, flag.ContinueOnError)
	username := fs.String("username", "", "account username")
	email := fs.String("email", "", "account email")
	password := fs.String("new-password", "", "replacement password")
	id := fs.Uint64("id", 0, "reset request id")
	if errParse := fs.Parse(actionArgs); errParse != nil {
		return errParse
	}

	switch action {
	case "request":
		request, err := application.Users.RequestPasswordReset(ctx, *username, *email)
		if err != nil {
			return err
		}
		log.Infof("reset request %d opened", request.ID)
		return nil
	case "approve":
		return application.Users.ApprovePasswordReset(ctx, *id)
	case "complete":
		return application.Users.CompletePasswordReset(ctx, *username, *email, *password)
	case "cancel":
		return application.Users.CancelPasswordReset(ctx, *id)
	case "pending":
		requests, err := application.Users.GetPendingResetRequests(ctx)
		if err != nil {
			return err
		}
		for _, request := range requests {
			fmt.Printf("%d\t%s\t%s\trequested %s\n", request.ID, request.Username, request.Email, formatMillis(request.RequestedAt))
		}
		return nil
	default:
		return fmt.Errorf("unknown reset action %q", action)
	}
}

func formatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func formatMillis(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04")
}
