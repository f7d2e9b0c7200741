package testupstream

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gamepulse/internal/domain/model"
)

// Frappe timestamp layout.
const timestampLayout = "2006-01-02 15:04:05.000000"

var (
	taskStatuses = []string{
		model.StatusOpen, model.StatusOpen, model.StatusInProgress,
		model.StatusInProgress, model.StatusCompleted, model.StatusClosed,
	}
	activityActions = []string{"created", "updated", "commented", "status_changed"}
)

type generator struct {
	cfg Config
	rnd *rand.Rand
}

// Generate builds a snapshot from cfg. The same Config always yields the
// same records, names included.
func Generate(cfg Config) model.Snapshot {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaultHistoryDays
	}
	g := &generator{cfg: cfg, rnd: rand.New(rand.NewSource(cfg.Seed))} //nolint:gosec // test data

	var s model.Snapshot
	for i := 0; i < cfg.Teams; i++ {
		team := model.Team{Name: g.id(), Title: fmt.Sprintf("Team %d", i+1)}
		s.Teams = append(s.Teams, team)
		for j := 0; j < cfg.ProjectsPerTeam; j++ {
			s.Projects = append(s.Projects, model.Project{
				Name:   g.id(),
				Title:  fmt.Sprintf("%s Project %d", team.Title, j+1),
				Team:   team.Name,
				Status: "Active",
			})
		}
	}

	for i := 0; i < cfg.Employees; i++ {
		email := fmt.Sprintf("user%02d@example.com", i+1)
		s.Profiles = append(s.Profiles, model.UserProfile{
			Name:     g.id(),
			Email:    email,
			FullName: fmt.Sprintf("User %02d", i+1),
		})
		for j := 0; j < cfg.TasksPerEmployee; j++ {
			s.Tasks = append(s.Tasks, g.task(email, s.Projects))
		}
	}

	for _, t := range s.Tasks {
		if cfg.CommentsPerTask <= 0 {
			break
		}
		for n := g.rnd.Intn(cfg.CommentsPerTask + 1); n > 0; n-- {
			owner := t.AssignedTo
			if len(s.Profiles) > 0 && g.rnd.Intn(4) == 0 {
				owner = s.Profiles[g.rnd.Intn(len(s.Profiles))].Email
			}
			s.Comments = append(s.Comments, model.Comment{
				Name:             g.id(),
				Owner:            owner,
				Content:          "Progress update",
				Creation:         g.past(),
				ReferenceDoctype: model.DocTypeTask,
				ReferenceName:    t.Name,
			})
		}
	}

	for _, p := range s.Profiles {
		for n := 0; n < cfg.ActivitiesPerEmployee; n++ {
			a := model.Activity{
				Name:     g.id(),
				Owner:    p.Email,
				Action:   activityActions[g.rnd.Intn(len(activityActions))],
				Creation: g.past(),
			}
			if len(s.Tasks) > 0 {
				a.ReferenceDoctype = model.DocTypeTask
				a.ReferenceName = s.Tasks[g.rnd.Intn(len(s.Tasks))].Name
			}
			s.Activities = append(s.Activities, a)
		}
	}
	return s
}

func (g *generator) task(assignee string, projects []model.Project) model.Task {
	created := g.cfg.Now.Add(-time.Duration(g.rnd.Int63n(int64(g.cfg.HistoryDays) * int64(24*time.Hour))))
	modified := created.Add(time.Duration(g.rnd.Int63n(int64(g.cfg.Now.Sub(created)) + 1)))
	due := created.AddDate(0, 0, 1+g.rnd.Intn(g.cfg.HistoryDays))

	t := model.Task{
		Name:       g.id(),
		Title:      fmt.Sprintf("Task %d", g.rnd.Intn(10000)),
		Status:     taskStatuses[g.rnd.Intn(len(taskStatuses))],
		Priority:   []string{"Low", "Medium", "High"}[g.rnd.Intn(3)],
		AssignedTo: assignee,
		DueDate:    due.Format("2006-01-02"),
		Modified:   modified.Format(timestampLayout),
		Creation:   created.Format(timestampLayout),
	}
	if len(projects) > 0 {
		p := projects[g.rnd.Intn(len(projects))]
		t.Project, t.Team = p.Name, p.Team
	}
	return t
}

// past returns a timestamp within the configured history window.
func (g *generator) past() string {
	back := time.Duration(g.rnd.Int63n(int64(g.cfg.HistoryDays) * int64(24*time.Hour)))
	return g.cfg.Now.Add(-back).Format(timestampLayout)
}

// id draws a UUID from the seeded source so names are reproducible.
func (g *generator) id() string {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
