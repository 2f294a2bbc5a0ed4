package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"fieldops/internal/identity"
	"fieldops/internal/report"
	"fieldops/internal/store"
	"fieldops/internal/task"
)

// seedUsers is the development fixture: one account per role plus a
// second executor, so reassignment flows can be exercised by hand.
var seedUsers = []struct {
	username string
	role     task.Role
}{
	{"dispatch", task.RoleDispatcher},
	{"maria", task.RoleRequester},
	{"jonas", task.RoleExecutor},
	{"ana", task.RoleExecutor},
}

const seedPassword = "password123"

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with development fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.Printf("WARNING: store close: %v", err)
				}
			}()

			ident := identity.NewService(st, identity.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL.Std()))
			ids := make(map[string]int64, len(seedUsers))
			for _, su := range seedUsers {
				u, _, err := ident.Register(su.username, seedPassword, su.role)
				if err != nil {
					return fmt.Errorf("seeding user %s: %w", su.username, err)
				}
				ids[su.username] = u.ID
				fmt.Printf("created %-10s %s (id %d)\n", su.role, su.username, u.ID)
			}

			// A small spread of tasks in different lifecycle states.
			tasks := task.NewService(st, task.NopPublisher{})
			requester := task.Actor{ID: ids["maria"], Role: task.RoleRequester}
			executor := task.Actor{ID: ids["jonas"], Role: task.RoleExecutor}

			drafts := []task.Draft{
				{Title: "Water leak in sector B", Location: &task.Location{Latitude: 52.5200, Longitude: 13.4050}},
				{Title: "Blocked access road", Location: &task.Location{Latitude: 52.5310, Longitude: 13.3847}},
				{Title: "Generator inspection", Location: &task.Location{Latitude: 52.5074, Longitude: 13.4261}},
			}
			var created []*task.Task
			for _, d := range drafts {
				tsk, err := tasks.Create(d, requester)
				if err != nil {
					return fmt.Errorf("seeding task %q: %w", d.Title, err)
				}
				created = append(created, tsk)
				fmt.Printf("created task %d: %s\n", tsk.ID, tsk.Title)
			}

			// Move one to in_progress and finish another.
			if _, err := tasks.Transition(created[1].ID, task.Patch{Status: task.StatusInProgress}, executor); err != nil {
				return fmt.Errorf("seeding transitions: %w", err)
			}
			if _, err := tasks.Transition(created[2].ID, task.Patch{Status: task.StatusInProgress}, executor); err != nil {
				return fmt.Errorf("seeding transitions: %w", err)
			}
			if _, err := tasks.Transition(created[2].ID, task.Patch{Status: task.StatusCompleted}, executor); err != nil {
				return fmt.Errorf("seeding transitions: %w", err)
			}

			// One report so the listing endpoints have content.
			_, name, err := report.NewGenerator(st, cfg.ReportsDir).Generate("")
			if err != nil {
				return fmt.Errorf("seeding report: %w", err)
			}
			fmt.Printf("wrote %s\n", name)

			version, err := st.CurrentVersion()
			if err != nil {
				return err
			}
			fmt.Printf("seeded; version counter at %d\n", version)
			return nil
		},
	}
}
