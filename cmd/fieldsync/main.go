package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/avoskresensky/fieldsync/internal/blobcache"
	"github.com/avoskresensky/fieldsync/internal/buildinfo"
	"github.com/avoskresensky/fieldsync/internal/config"
	"github.com/avoskresensky/fieldsync/internal/connectivity"
	"github.com/avoskresensky/fieldsync/internal/engine"
	"github.com/avoskresensky/fieldsync/internal/logging"
	"github.com/avoskresensky/fieldsync/internal/remote"
	"github.com/avoskresensky/fieldsync/internal/store"
)

const usage = `usage: fieldsync <command> [flags]

commands:
  init <company-id> <user-id>   bootstrap the replica sync scope
  full                          full sync: flush, pull all entities, reconcile, link
  launch                        critical-path sync, remainder best-effort in background
  refresh                       changed-since refresh of projects, tasks and events
  flush                         push pending local mutations only
  status                        show scope, sync marks and pending counts
`

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fieldsync: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}
	if cmd == "" {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewText(slog.LevelInfo)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if cmd == "init" {
		return initScope(ctx, st, args)
	}

	api := remote.NewAPI(remote.NewClient(remote.ClientConfig{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.RequestTimeout,
		RetryAttempts: 3,
	}, logger))

	monitor := connectivity.NewPingMonitor(api.Pinger, cfg.OnlineCheckInterval, logger)

	var cache blobcache.Cache = blobcache.Null{}
	if cfg.CacheDir != "" {
		cache, err = blobcache.NewDirCache(cfg.CacheDir)
		if err != nil {
			return err
		}
	}

	eng := engine.New(st, api, monitor, logger, engine.Options{
		GracePeriod:      cfg.GracePeriod,
		PendingBatchSize: cfg.PendingBatchSize,
		LinkAfterRefresh: cfg.LinkAfterRefresh,
		Cache:            cache,
		OnStatus: func(s engine.Status) {
			if s.InProgress {
				fmt.Printf("[%3.0f%%] %s\n", s.Progress*100, s.Stage)
			}
		},
	})

	switch cmd {
	case "status":
		return printStatus(ctx, st, monitor.ProbeNow(ctx))
	case "full", "launch", "refresh", "flush":
		if !monitor.ProbeNow(ctx) {
			return fmt.Errorf("backend unreachable at %s", cfg.APIBaseURL)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	switch cmd {
	case "full":
		return eng.FullSync(ctx)
	case "launch":
		return eng.LaunchSync(ctx)
	case "refresh":
		return eng.BackgroundRefresh(ctx)
	case "flush":
		n, err := eng.FlushPending(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("flushed %d pending mutation(s)\n", n)
		return nil
	}
	return nil
}

func initScope(ctx context.Context, st *store.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("init requires <company-id> <user-id>")
	}
	if err := st.Metadata.Set(ctx, store.MetaCompanyID, args[0]); err != nil {
		return err
	}
	if err := st.Metadata.Set(ctx, store.MetaUserID, args[1]); err != nil {
		return err
	}
	fmt.Printf("sync scope set: company=%s user=%s\n", args[0], args[1])
	return nil
}

func printStatus(ctx context.Context, st *store.Store, connected bool) error {
	companyID, err := st.Metadata.Get(ctx, store.MetaCompanyID)
	if err != nil {
		return err
	}
	userID, err := st.Metadata.Get(ctx, store.MetaUserID)
	if err != nil {
		return err
	}
	lastFull, err := st.Metadata.GetTime(ctx, store.MetaLastFullSync)
	if err != nil {
		return err
	}
	lastRefresh, err := st.Metadata.GetTime(ctx, store.MetaLastRefreshAt)
	if err != nil {
		return err
	}

	fmt.Printf("connected:    %v\n", connected)
	fmt.Printf("scope:        company=%s user=%s\n", orUnset(companyID), orUnset(userID))
	fmt.Printf("last full:    %s\n", formatMark(lastFull))
	fmt.Printf("last refresh: %s\n", formatMark(lastRefresh))

	counts, err := pendingCounts(ctx, st)
	if err != nil {
		return err
	}
	fmt.Printf("pending:      %s\n", counts)
	return nil
}

func pendingCounts(ctx context.Context, st *store.Store) (string, error) {
	var parts []string
	add := func(label string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", label, n))
		}
	}

	companies, err := st.Companies.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("companies", len(companies))
	users, err := st.Users.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("users", len(users))
	clients, err := st.Clients.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("clients", len(clients))
	subclients, err := st.SubClients.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("subclients", len(subclients))
	taskTypes, err := st.TaskTypes.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("task-types", len(taskTypes))
	projects, err := st.Projects.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("projects", len(projects))
	tasks, err := st.Tasks.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("tasks", len(tasks))
	events, err := st.Events.ListPending(ctx)
	if err != nil {
		return "", err
	}
	add("events", len(events))

	if len(parts) == 0 {
		return "none", nil
	}
	return strings.Join(parts, " "), nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func formatMark(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
