// Command seed populates a freshly migrated database with a realistic
// pipeline for local development and demos: one user, three resumes, a handful
// of companies and job postings, and applications spread across the
// lifecycle's non-terminal and terminal states.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func newID() string { return uuid.New().String() }

func hashPassword(pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), 12)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func daysAgo(d int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -d)
}

func randBetween(min, max int) int {
	return min + rand.Intn(max-min+1)
}

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

type company struct{ id, name, location, notes string }

type job struct {
	id, companyID, title, source, url, notes, status string
	daysAgo                                           int
}

type resume struct{ id, title string }

// appDef is one seeded application: a job/resume pair plus the status it
// should land in and how long ago it was applied to.
type appDef struct {
	jobIdx, resumeIdx   int
	name, status        string
	appliedDaysAgo      int
	recipientEmail      string
	source              string
	interviewRounds     int
	withCommunication   bool
}

func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "jobber"),
		envOr("DB_PASSWORD", "jobber"),
		envOr("DB_NAME", "jobber"),
		envOr("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	fmt.Println("connected to database")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	const seedEmail = "seed@jobber.dev"
	_, _ = tx.Exec(ctx, `DELETE FROM users WHERE email = $1`, seedEmail)
	fmt.Println("cleaned previous seed data")

	// ── 1. user, with a connected mailbox and default notification prefs ──
	userID := newID()
	createdAt := daysAgo(120)

	mailboxJSON := fmt.Sprintf(`{
		"access_token": "seed-access-token",
		"refresh_token": "seed-refresh-token",
		"expiry": "%s",
		"email_address": "%s",
		"connected_at": "%s"
	}`, daysAgo(-1).Format(time.RFC3339), seedEmail, daysAgo(118).Format(time.RFC3339))

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, locale, plan, mailbox, portals, notification_prefs, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, '[]'::jsonb, $8, $9, $9)`,
		userID, seedEmail, "Alex Jobseeker", hashPassword("password123"), "en", "pro", mailboxJSON,
		`{"email_enabled": true, "types": {}}`, createdAt,
	)
	must(err, "create user")
	fmt.Printf("created user: %s / password123\n", seedEmail)

	// ── 2. subscription, mid-cycle with some usage already tracked ──
	_, err = tx.Exec(ctx,
		`INSERT INTO subscriptions (id, user_id, plan_id, current_usage, usage_reset_date, billing_period_start, created_at, updated_at)
		 VALUES ($1, $2, 'pro', $3, $4, $5, $6, $6)`,
		newID(), userID, `{"auto_application": 9, "manual_application": 5}`, daysAgo(-12), daysAgo(18), daysAgo(18),
	)
	must(err, "create subscription")
	fmt.Println("created subscription")

	// ── 3. resumes ──
	resumes := []resume{
		{newID(), "Software Engineer Resume"},
		{newID(), "Frontend Developer Resume"},
		{newID(), "Full-Stack Developer Resume"},
	}
	for _, r := range resumes {
		parsed := `{"skills": ["Go", "TypeScript", "PostgreSQL"], "years_experience": 6}`
		_, err = tx.Exec(ctx,
			`INSERT INTO resumes (id, user_id, title, file_url, storage_type, storage_key, is_active, parsed, created_at, updated_at)
			 VALUES ($1, $2, $3, NULL, 'external', NULL, true, $4, $5, $5)`,
			r.id, userID, r.title, parsed, daysAgo(randBetween(100, 115)),
		)
		must(err, "create resume "+r.title)
	}
	fmt.Printf("created %d resumes\n", len(resumes))

	// ── 4. companies ──
	companies := []company{
		{newID(), "TechNova", "San Francisco, CA", "Series B startup, strong engineering culture"},
		{newID(), "CloudScale Inc.", "Remote", "Cloud infrastructure company, competitive salary"},
		{newID(), "DataPulse", "New York, NY", "Data analytics platform, fast-growing"},
		{newID(), "GreenByte Solutions", "Austin, TX", "Sustainability-focused tech, good WLB"},
		{newID(), "Quantum Labs", "Seattle, WA", "R&D heavy, cutting edge ML work"},
		{newID(), "FinEdge", "Chicago, IL", "Fintech startup, pre-IPO"},
		{newID(), "PixelCraft Studios", "Los Angeles, CA", "Creative tools for designers"},
		{newID(), "InfraCore", "Denver, CO", "DevOps / platform engineering focus"},
	}
	for _, c := range companies {
		_, err = tx.Exec(ctx,
			`INSERT INTO companies (id, user_id, name, location, notes, contact_email, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NULL, $6, $6)`,
			c.id, userID, c.name, c.location, c.notes, daysAgo(randBetween(90, 110)),
		)
		must(err, "create company "+c.name)
	}
	fmt.Printf("created %d companies\n", len(companies))

	// ── 5. jobs ──
	jobs := []job{
		{newID(), companies[0].id, "Senior Software Engineer", "linkedin", "https://linkedin.com/jobs/1001", "Exciting ML team", "active", 85},
		{newID(), companies[0].id, "Staff Engineer - Platform", "company_website", "https://technova.io/careers/staff", "Platform team, high impact", "active", 60},
		{newID(), companies[1].id, "Backend Engineer (Go)", "indeed", "https://indeed.com/jobs/2001", "Remote-first, Go + K8s", "active", 80},
		{newID(), companies[1].id, "Senior Backend Engineer", "referral", "", "Referred by Sarah Chen", "active", 45},
		{newID(), companies[2].id, "Full-Stack Developer", "linkedin", "https://linkedin.com/jobs/3001", "React + Node stack", "active", 75},
		{newID(), companies[2].id, "Frontend Engineer", "angellist", "https://angel.co/datapulse/frontend", "Design-focused role", "expired", 90},
		{newID(), companies[3].id, "Software Engineer II", "company_website", "https://greenbyte.dev/careers", "Green tech mission", "active", 70},
		{newID(), companies[4].id, "ML Engineer", "hacker_news", "https://quantumlabs.ai/jobs/ml", "PyTorch, transformers research", "active", 65},
		{newID(), companies[4].id, "Senior Software Engineer - AI", "company_website", "https://quantumlabs.ai/jobs/swe-ai", "LLM infra work", "active", 50},
		{newID(), companies[5].id, "Backend Engineer - Payments", "linkedin", "https://linkedin.com/jobs/6001", "Payments domain, Go + gRPC", "active", 55},
		{newID(), companies[6].id, "Frontend Engineer - React", "angellist", "https://angel.co/pixelcraft/react", "Creative tooling, WebGL", "active", 72},
		{newID(), companies[7].id, "Platform Engineer", "referral", "", "Referred by Mike Torres", "active", 35},
	}
	for _, j := range jobs {
		details := `{"employment_type": "full_time", "remote": true}`
		_, err = tx.Exec(ctx,
			`INSERT INTO jobs (id, user_id, company_id, title, source, url, notes, status, details, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			j.id, userID, j.companyID, j.title, j.source, j.url, j.notes, j.status, details, daysAgo(j.daysAgo),
		)
		must(err, "create job "+j.title)
	}
	fmt.Printf("created %d jobs\n", len(jobs))

	// ── 6. applications, spread across the lifecycle ──
	appDefs := []appDef{
		{0, 0, "TechNova - Senior SWE", "interview_scheduled", 82, "recruiting@technova.io", "browser_automation", 1, true},
		{2, 0, "CloudScale - Backend Go", "under_review", 78, "jobs@cloudscale.io", "auto_apply", 0, true},
		{4, 2, "DataPulse - Full-Stack", "second_round", 72, "talent@datapulse.com", "auto_apply", 2, true},
		{6, 0, "GreenByte - SWE II", "submitted", 68, "careers@greenbyte.dev", "auto_apply", 0, false},
		{7, 0, "Quantum Labs - ML Eng", "pending_verification", 5, "apply@quantumlabs.ai", "auto_apply", 0, false},
		{9, 0, "FinEdge - Backend Payments", "offer_received", 52, "hr@finedge.io", "browser_automation", 3, true},
		{10, 2, "PixelCraft - Frontend React", "rejected", 88, "jobs@pixelcraft.studio", "auto_apply", 1, true},
		{11, 0, "InfraCore - Platform Eng", "manual_action_required", 32, "apply@infracore.dev", "browser_automation", 0, false},
		{3, 0, "CloudScale - Senior Backend", "withdrawn", 90, "", "direct", 0, false},
		{1, 0, "TechNova - Staff Platform", "archived", 58, "recruiting@technova.io", "auto_apply", 2, false},
	}

	for _, ad := range appDefs {
		appID := newID()
		appliedAt := daysAgo(ad.appliedDaysAgo)

		var timeline, communications, interviews string
		timeline = fmt.Sprintf(`[{"type":"status_change","metadata":{"new_status":%q},"created_at":%q}]`, ad.status, appliedAt.Add(2*time.Hour).Format(time.RFC3339))

		if ad.withCommunication {
			communications = fmt.Sprintf(`[{"id":%q,"direction":"inbound","channel":"email","from":%q,"subject":"Following up on your application","snippet":"Thanks for applying, we would like to schedule a call.","timestamp":%q}]`,
				newID(), ad.recipientEmail, appliedAt.Add(5*24*time.Hour).Format(time.RFC3339))
		} else {
			communications = `[]`
		}

		if ad.interviewRounds > 0 {
			rounds := make([]string, ad.interviewRounds)
			for i := 0; i < ad.interviewRounds; i++ {
				scheduledAt := appliedAt.Add(time.Duration(7+i*7) * 24 * time.Hour)
				rounds[i] = fmt.Sprintf(`{"id":%q,"type":"technical","scheduled_at":%q,"created_at":%q,"updated_at":%q}`,
					newID(), scheduledAt.Format(time.RFC3339), scheduledAt.Format(time.RFC3339), scheduledAt.Format(time.RFC3339))
			}
			interviews = "[" + joinJSON(rounds) + "]"
		} else {
			interviews = `[]`
		}

		var verificationDomain any
		if ad.status == "pending_verification" {
			verificationDomain = "quantumlabs.ai"
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO applications (
				id, user_id, job_id, resume_id, name, status, source, priority,
				applied_at, application_url, application_domain, recipient_email, email_thread_id, last_outbound_sent_at,
				documents, communications, interviews, tasks, timeline,
				email_monitoring_enabled, last_response_check, response_check_count,
				follow_up_date, next_follow_up, follow_up_count,
				verification_portal_domain, notes,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, 'normal',
				$8, '', '', $9, '', $8,
				'[]'::jsonb, $10, $11, '[]'::jsonb, $12,
				true, NULL, 0,
				NULL, NULL, 0,
				$13, '',
				$14, $14
			)`,
			appID, userID, jobs[ad.jobIdx].id, resumes[ad.resumeIdx].id, ad.name, ad.status, ad.source,
			appliedAt, ad.recipientEmail, communications, interviews, timeline,
			verificationDomain, appliedAt,
		)
		must(err, "create application "+ad.name)
	}
	fmt.Printf("created %d applications\n", len(appDefs))

	// ── 7. a couple of notifications already delivered ──
	notifs := []struct {
		typ, title, message string
		daysAgo             int
	}{
		{"application_submitted", "Application submitted", "Your application to GreenByte Solutions was submitted.", 68},
		{"status_update", "Interview scheduled", "TechNova moved your application to interview_scheduled.", 80},
		{"weekly_summary", "Your week in review", "3 applications submitted, 1 interview scheduled.", 7},
	}
	for _, n := range notifs {
		_, err = tx.Exec(ctx,
			`INSERT INTO notifications (id, user_id, type, title, message, data, channels, deliveries, read, created_at, sent_at)
			 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb, $6, '[]'::jsonb, true, $7, $7)`,
			newID(), userID, n.typ, n.title, n.message, `["in_app"]`, daysAgo(n.daysAgo),
		)
		must(err, "create notification "+n.title)
	}
	fmt.Printf("created %d notifications\n", len(notifs))

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	fmt.Println("\nseed completed successfully")
	fmt.Printf("  login: %s / password123\n", seedEmail)
}

func joinJSON(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
