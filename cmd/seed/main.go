// Seeder command for populating a demo center with batches and leads.
//
// SAFETY: This command ONLY runs when:
//   - APP_ENV=development
//   - --confirm flag is provided
//
// Usage:
//
//	APP_ENV=development go run ./cmd/seed --leads 25 --confirm
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/db"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store/postgres"

	"github.com/jinzhu/now"
)

const demoPassword = "demo-password"

func main() {
	count := flag.Int("leads", 25, "Number of leads to seed")
	confirm := flag.Bool("confirm", false, "Confirm seeding (required)")
	flag.Parse()

	if os.Getenv("APP_ENV") != "development" {
		log.Fatalf("ERROR: Seeder can only run in development environment. Set APP_ENV=development and try again.")
	}
	if !*confirm {
		log.Fatalf("ERROR: --confirm flag is required. Usage: APP_ENV=development go run ./cmd/seed --leads %d --confirm", *count)
	}

	ctx := context.Background()
	cfg := config.Load()
	conn, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()
	if err := db.RunMigrations(ctx, conn); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := service.New(postgres.New(conn))
	code := fmt.Sprintf("DEMO%d", time.Now().Unix()%100000)

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("SEEDER: Preparing center %s with %d leads", code, *count)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	center, err := svc.CreateCenter(ctx, models.SystemActor, service.CenterInput{Name: "Demo Center " + code, Code: code, Timezone: "UTC"})
	if err != nil {
		log.Fatalf("Failed to create center: %v", err)
	}
	adminEmail := fmt.Sprintf("admin+%s@example.com", code)
	adminUser, err := svc.CreateUser(ctx, models.SystemActor, service.UserInput{
		CenterID: &center.ID, Email: adminEmail, Password: demoPassword, FullName: "Demo Admin", Role: models.RoleCenterAdmin,
	})
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	admin := models.Actor{UserID: adminUser.ID, Role: adminUser.Role, CenterID: &center.ID}

	batchPlan := []service.BatchInput{
		{Name: "Tiny Tumblers", MinAgeMonths: 24, MaxAgeMonths: 48, DaysOfWeek: []models.Weekday{models.Monday, models.Wednesday}, StartTime: "09:30", EndTime: "10:15", Capacity: 8},
		{Name: "Little Movers", MinAgeMonths: 48, MaxAgeMonths: 84, DaysOfWeek: []models.Weekday{models.Tuesday, models.Thursday}, StartTime: "16:00", EndTime: "17:00", Capacity: 12},
		{Name: "Junior Athletes", MinAgeMonths: 84, MaxAgeMonths: 144, DaysOfWeek: []models.Weekday{models.Saturday}, StartTime: "10:00", EndTime: "11:30", Capacity: 16},
	}
	monday := now.With(time.Now().UTC()).Monday()
	for _, in := range batchPlan {
		b, err := svc.CreateBatch(ctx, admin, center.ID, in)
		if err != nil {
			log.Printf("ERROR: Failed to create batch %s: %v", in.Name, err)
			continue
		}
		sessions, err := svc.GenerateSessions(ctx, admin, center.ID, b.ID, monday, monday.AddDate(0, 0, 27))
		if err != nil {
			log.Printf("ERROR: Failed to generate sessions for %s: %v", b.Name, err)
			continue
		}
		log.Printf("Batch %s: %d sessions over the next four weeks", b.Name, len(sessions))
	}

	sources := []models.LeadSource{models.SourceWalkIn, models.SourcePhone, models.SourceWebsite, models.SourceReferral}
	statusCounts := make(map[models.LeadStatus]int)
	for i := 1; i <= *count; i++ {
		dob := time.Now().UTC().AddDate(-3-i%8, -(i % 12), 0)
		lead, err := svc.CreateLead(ctx, admin, center.ID, service.LeadInput{
			ChildName:  fmt.Sprintf("Seed Child %02d", i),
			ChildDOB:   &dob,
			ParentName: fmt.Sprintf("Seed Parent %02d", i),
			Phone:      fmt.Sprintf("010000000%02d", i),
			Source:     sources[i%len(sources)],
			Notes:      "seeder",
		})
		if err != nil {
			log.Printf("ERROR: Failed to insert lead %d: %v", i, err)
			continue
		}

		// spread leads over the first pipeline stages
		switch i % 3 {
		case 1:
			var contacted *models.Lead
			if contacted, err = svc.MarkContacted(ctx, admin, center.ID, lead.ID, "first call"); err == nil {
				lead = contacted
			}
		case 2:
			_, err = svc.ScheduleIntroVisit(ctx, admin, center.ID, lead.ID, service.IntroVisitInput{
				ScheduledAt: monday.AddDate(0, 0, 7+i%5).Add(16 * time.Hour),
			})
			if err == nil {
				var detail *models.LeadDetail
				detail, err = svc.GetLead(ctx, admin, center.ID, lead.ID, false)
				if err == nil {
					lead = detail.Lead
				}
			}
		}
		if err != nil {
			log.Printf("ERROR: Failed to advance lead %d: %v", i, err)
		}
		statusCounts[lead.Status]++
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("SEEDER: Distribution by status:")
	statuses := make([]string, 0, len(statusCounts))
	for s := range statusCounts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		log.Printf("  %-16s %d", s, statusCounts[models.LeadStatus(s)])
	}
	log.Printf("")
	log.Printf("✓ Seeding complete. Login: %s / %s", adminEmail, demoPassword)
}
