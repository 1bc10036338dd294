package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/validate"
)

var seedPassword string

var errAlreadySeeded = errors.New("demo admin already exists, database looks seeded")

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users, reports, articles and comments",
	Long: `Fill an empty database with demo content. Every account gets the same
password, "password" unless --password says otherwise.

The data goes through the same services as the API, so it obeys the same
rules: reports start as new and only the admin triages them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		users := repository.NewUserRepository(d)
		reports := repository.NewReportRepository(d)
		articles := repository.NewArticleRepository(d)
		comments := repository.NewCommentRepository(d)
		s := newSeeder(users, reports, articles, comments, log)
		s.password = seedPassword

		sum, err := s.run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d reports, %d articles, %d comments\n",
			sum.Users, sum.Reports, sum.Articles, sum.Comments)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password for every demo account")
	rootCmd.AddCommand(seedCmd)
}

type seedSummary struct {
	Users, Reports, Articles, Comments int
}

type seeder struct {
	auth     *auth.Service
	reports  *service.ReportService
	articles *service.ArticleService
	comments *service.CommentService
	password string
}

type seedUserStore interface {
	auth.UserStore
	service.UserRepository
}

func newSeeder(users seedUserStore, reports service.ReportRepository, articles service.ArticleRepository, comments service.CommentRepository, log logrus.FieldLogger) *seeder {
	v := validate.New()
	return &seeder{
		auth:     auth.NewService(users, nil, v, 0, log),
		reports:  service.NewReportService(reports, v, nil, log),
		articles: service.NewArticleService(articles, comments, v, nil, log),
		comments: service.NewCommentService(articles, comments, v, nil, log),
		password: "password",
	}
}

var (
	demoAdmin     = models.RegisterInput{Name: "Admin Desa", Email: "admin@desa.id"}
	demoResidents = []models.RegisterInput{
		{Name: "Budi Santoso", Email: "warga@desa.id"},
		{Name: "Siti Aminah", Email: "siti@desa.id"},
		{Name: "Agus Pratama", Email: "agus@desa.id"},
		{Name: "Dewi Lestari", Email: "dewi@desa.id"},
	}
	demoReports = []models.ReportInput{
		{Title: "Pothole on Jalan Merdeka", Description: "A deep pothole in front of the school gate floods when it rains.", Category: models.CategoryRoad, Priority: models.PriorityHigh},
		{Title: "Broken bridge railing", Description: "The railing of the bamboo bridge to the rice fields is loose.", Category: models.CategoryBridge, Priority: models.PriorityEmergency},
		{Title: "Blocked gutter", Description: "Rubbish blocks the gutter along RT 03, water overflows into the road.", Category: models.CategoryDrainage, Priority: models.PriorityMedium},
		{Title: "Street light out", Description: "The lamp at the mosque junction has been dark for a week.", Category: models.CategoryElectricity, Priority: models.PriorityMedium},
		{Title: "Well water is cloudy", Description: "The public well near the market has turned brown.", Category: models.CategoryCleanWater, Priority: models.PriorityHigh},
		{Title: "Overflowing bins", Description: "The bins at the field are not collected on schedule.", Category: models.CategorySanitation, Priority: models.PriorityLow},
		{Title: "Leaking roof at the village hall", Description: "Rain drips onto the meeting room floor.", Category: models.CategoryPublicFacility, Priority: models.PriorityMedium},
		{Title: "Stray dogs near the school", Description: "A pack of dogs gathers by the school every morning.", Category: models.CategoryOther, Priority: models.PriorityLow},
	}
	demoArticles = []models.ArticleInput{
		{Title: "Community clean-up this Sunday", Content: "All residents are invited to the monthly clean-up, starting 7am at the village hall.", Status: models.ArticlePublished},
		{Title: "Posyandu schedule for next month", Content: "Child health checks take place every second Tuesday at the posyandu.", Status: models.ArticlePublished},
		{Title: "Road repair budget approved", Content: "The village council approved the budget to resurface Jalan Merdeka.", Status: models.ArticlePublished},
		{Title: "Independence Day competitions", Content: "Sign up for the 17 August games at the RT heads.", Status: models.ArticlePublished},
		{Title: "Draft: water tariff review", Content: "Notes for the upcoming review of the clean water tariff.", Status: models.ArticleDraft},
	}
	demoComments = []string{
		"Thank you for the information!",
		"I'll be there with my family.",
		"Can we bring our own tools?",
	}
)

type triage struct {
	status   models.ReportStatus
	response string
}

// the first reports are moved along the workflow so every status shows up
var demoTriage = []triage{
	{models.StatusDone, "Patched by the public works team."},
	{models.StatusInProgress, "A carpenter is scheduled for Thursday."},
	{models.StatusUnderReview, "We are checking with the RT head."},
	{models.StatusRejected, "This lamp belongs to the power company; please report it to them."},
}

func (s *seeder) run(ctx context.Context) (seedSummary, error) {
	var sum seedSummary

	admin, err := s.user(ctx, demoAdmin, models.RoleAdmin)
	if err != nil {
		if ve, ok := apperr.IsValidation(err); ok && ve.Fields["email"] != "" {
			return sum, errAlreadySeeded
		}
		return sum, err
	}
	sum.Users++
	adminActor := auth.Actor(admin)

	residents := make([]policy.Actor, 0, len(demoResidents))
	for _, in := range demoResidents {
		u, err := s.user(ctx, in, models.RoleResident)
		if err != nil {
			return sum, err
		}
		residents = append(residents, auth.Actor(u))
		sum.Users++
	}

	for i, in := range demoReports {
		r, err := s.reports.Create(ctx, residents[i%len(residents)], in)
		if err != nil {
			return sum, fmt.Errorf("seed report %q: %w", in.Title, err)
		}
		sum.Reports++
		if i < len(demoTriage) {
			t := demoTriage[i]
			patch := models.AdminReportPatch{Status: &t.status, AdminResponse: &t.response}
			if _, err := s.reports.Update(ctx, adminActor, r.ID, patch); err != nil {
				return sum, fmt.Errorf("triage report %d: %w", r.ID, err)
			}
		}
	}

	for _, in := range demoArticles {
		a, err := s.articles.Create(ctx, adminActor, in)
		if err != nil {
			return sum, fmt.Errorf("seed article %q: %w", in.Title, err)
		}
		sum.Articles++
		if a.Status != models.ArticlePublished {
			continue
		}
		for i, text := range demoComments {
			author := residents[(int(a.ID)+i)%len(residents)]
			if _, err := s.comments.Create(ctx, author, a.ID, models.CommentInput{Content: text}); err != nil {
				return sum, fmt.Errorf("seed comment: %w", err)
			}
			sum.Comments++
		}
	}
	return sum, nil
}

func (s *seeder) user(ctx context.Context, in models.RegisterInput, role models.Role) (models.User, error) {
	in.Password = s.password
	return s.auth.CreateUser(ctx, in, role)
}
