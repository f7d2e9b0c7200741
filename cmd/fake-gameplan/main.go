package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/gamepulse/internal/testupstream"
	"github.com/okian/gamepulse/pkg/logger"
)

func main() {
	defaults := testupstream.DefaultConfig(time.Now())
	var (
		addr       = flag.String("addr", "127.0.0.1:9090", "Listen address")
		apiKey     = flag.String("key", "", "Accepted API key (empty accepts any token)")
		seed       = flag.Int64("seed", defaults.Seed, "Seed for generated data")
		teams      = flag.Int("teams", defaults.Teams, "Number of teams")
		projects   = flag.Int("projects", defaults.ProjectsPerTeam, "Projects per team")
		employees  = flag.Int("employees", defaults.Employees, "Number of employees")
		tasks      = flag.Int("tasks", defaults.TasksPerEmployee, "Tasks per employee")
		comments   = flag.Int("comments", defaults.CommentsPerTask, "Max comments per task")
		activities = flag.Int("activities", defaults.ActivitiesPerEmployee, "Activities per employee")
		days       = flag.Int("days", defaults.HistoryDays, "Days of history")
		bare       = flag.Bool("bare", false, "Serve bare arrays instead of the data envelope")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := defaults
	cfg.Seed = *seed
	cfg.Teams = *teams
	cfg.ProjectsPerTeam = *projects
	cfg.Employees = *employees
	cfg.TasksPerEmployee = *tasks
	cfg.CommentsPerTask = *comments
	cfg.ActivitiesPerEmployee = *activities
	cfg.HistoryDays = *days

	opts := []testupstream.ServerOption{testupstream.WithAPIKey(*apiKey)}
	if *bare {
		opts = append(opts, testupstream.WithBareArrays())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := testupstream.Serve(ctx, *addr, cfg, opts...); err != nil {
		logger.Get().Error(ctx, "fake gameplan failed", logger.Error(err))
		os.Exit(1)
	}
}
