package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"remindd/internal/app"
	"remindd/internal/config"
	"remindd/internal/reminder"
	"remindd/internal/storage"
	logx "remindd/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")
	flag.Parse()

	// "remindd add ..." creates a reminder directly in the store and exits.
	if flag.Arg(0) == "add" {
		if err := runAdd(cfgPath, flag.Args()[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "add:", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-a.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	_ = a.Stop(context.Background(), stopReason(ctx, a))
	if err := a.Err(); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func stopReason(ctx context.Context, a *app.App) app.StopReason {
	if ctx.Err() != nil {
		return app.StopSIGTERM
	}
	if a.Err() != nil {
		return app.StopFatalError
	}
	return app.StopUnknown
}

// runAdd creates one reminder using the configured store. It never touches
// the network, so it works while the daemon is stopped.
func runAdd(cfgPath string, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		rctx     = fs.String("context", "", "reminder context: income, assets or expenses")
		desc     = fs.String("desc", "", "description (defaults per context)")
		priority = fs.String("priority", "", "priority tag (default: normal)")
		owner    = fs.String("owner", "", "owner key")
		kind     = fs.String("kind", "monthly", "recurrence kind: monthly, quarterly, annually")
		day      = fs.Int("day", 1, "day of month (monthly)")
		week     = fs.Int("week", 1, "week of quarter (quarterly)")
		month    = fs.Int("month", 1, "month of year (annually)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return err
	}
	sc := storage.Config{Driver: "file", Path: "./remindd_store"}
	if cfg.Storage != nil {
		bt, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return err
		}
		sc = storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: bt}
	}

	log := logx.NewConsole("WARN")
	store, err := storage.Open(sc, log)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("storage is disabled (driver=%q)", sc.Driver)
	}
	defer store.Close()

	svc := reminder.New(store, log, nil)
	r, err := svc.Create(context.Background(), reminder.CreateRequest{
		OwnerKey:       *owner,
		Description:    *desc,
		Context:        *rctx,
		Priority:       *priority,
		RecurrenceKind: *kind,
		DayOfMonth:     *day,
		WeekOfQuarter:  *week,
		MonthOfYear:    *month,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s) next fire %s\n", r.ID, r.Recurrence, r.ScheduledAt.Format("2006-01-02 15:04"))
	return nil
}
