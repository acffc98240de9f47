package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/open-craft/learndot-sync/internal/cache"
	"github.com/open-craft/learndot-sync/internal/config"
	"github.com/open-craft/learndot-sync/internal/grades"
	"github.com/open-craft/learndot-sync/internal/learndot"
	"github.com/open-craft/learndot-sync/internal/logger"
	"github.com/open-craft/learndot-sync/internal/mappings"
	"github.com/open-craft/learndot-sync/internal/statuslog"
	syncpkg "github.com/open-craft/learndot-sync/internal/sync"
)

var updateCmd = &cobra.Command{
	Use:   "update [course_id...]",
	Short: "Update Learndot enrolments from grade records",
	Long: `Update Learndot enrolments based on grade records. For every mapped course,
each passing learner's current enrolment is marked PASSED in Learndot. If
course IDs are given, only those courses are processed.

See the examples/ directory for sample configurations.`,
	RunE: runUpdate,
}

var passedCmd = &cobra.Command{
	Use:   "passed <course_id>",
	Short: "Process one passing grade event for a single learner",
	Long: `Process one "grade now passed" event: look up the learner's Learndot contact
and mark their current enrolment PASSED for every component mapped to the
course.`,
	Args: cobra.ExactArgs(1),
	RunE: runPassed,
}

func init() {
	updateCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	updateCmd.Flags().StringArrayP("username", "u", nil,
		"If usernames are given, only update enrolments for those users (repeatable)")
	updateCmd.Flags().BoolP("force", "f", false,
		"Skip the usual attempt to avoid API calls for enrolments that have already been updated, "+
			"and just send Learndot all current enrolment status information")
	updateCmd.Flags().String("created-after", "",
		"Only process grade records whose enrollment was created at or after this time (RFC 3339)")
	updateCmd.Flags().String("created-before", "",
		"Only process grade records whose enrollment was created at or before this time (RFC 3339)")
	if err := updateCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}

	passedCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	passedCmd.Flags().String("email", "", "Learner email address (required)")
	passedCmd.Flags().String("username", "", "Learner username")
	passedCmd.Flags().Int64("user-id", 0, "Learner platform user ID")
	if err := passedCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
	if err := passedCmd.MarkFlagRequired("email"); err != nil {
		logger.Fatalf("Failed to mark email flag as required: %v", err)
	}
}

// loadComponents loads configuration and builds the client and mapping store
// shared by the update and passed commands.
func loadComponents(configPath string) (*config.Config, learndot.Client, *mappings.Store, error) {
	cfg, err := config.NewConfigLoader(config.WithConfigPath(configPath)).LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (learndot: %s)", configPath, cfg.Learndot.BaseURL)

	store, err := mappings.Load(cfg.Mappings.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load course mappings: %w", err)
	}

	client := learndot.NewClient(cfg, cache.NewInMemory(), statuslog.NewFileLog(cfg.StatusLog.Path))
	return cfg, client, store, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	usernames, _ := cmd.Flags().GetStringArray("username")
	unconditional, _ := cmd.Flags().GetBool("force")

	opts := syncpkg.Options{
		Usernames:     usernames,
		CourseKeys:    args,
		Unconditional: unconditional,
	}

	for _, bound := range []struct {
		flag   string
		target *time.Time
	}{
		{"created-after", &opts.CreatedAfter},
		{"created-before", &opts.CreatedBefore},
	} {
		raw, _ := cmd.Flags().GetString(bound.flag)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid --%s value %q: %w", bound.flag, raw, err)
		}
		*bound.target = t
	}

	cfg, client, store, err := loadComponents(configPath)
	if err != nil {
		return err
	}

	if cfg.Grades.Path == "" {
		return fmt.Errorf("grades.path must be configured for batch updates")
	}

	manager := syncpkg.NewManager(client, store, grades.NewFileSource(cfg.Grades.Path))
	summary, err := manager.RunBatch(cmd.Context(), opts)
	if err != nil {
		return err
	}

	logger.Infof(
		"Update complete: processed=%d updated=%d skipped=%d failed=%d",
		summary.Processed, summary.Updated, summary.Skipped, summary.Failed,
	)
	if summary.Failed > 0 {
		return fmt.Errorf("%d enrolment update(s) failed", summary.Failed)
	}
	return nil
}

func runPassed(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	email, _ := cmd.Flags().GetString("email")
	username, _ := cmd.Flags().GetString("username")
	userID, _ := cmd.Flags().GetInt64("user-id")

	_, client, store, err := loadComponents(configPath)
	if err != nil {
		return err
	}

	learner := learndot.Learner{ID: userID, Username: username, Email: email}
	manager := syncpkg.NewManager(client, store, nil)
	return manager.HandleGradeNowPassed(cmd.Context(), learner, args[0])
}
