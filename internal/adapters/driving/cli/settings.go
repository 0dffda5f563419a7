package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure render, search, ingest and watch defaults.

Use subcommands to change a single setting or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the main defaults step by step.`,
	RunE:  runSettingsWizard,
}

var settingsPolicyCmd = &cobra.Command{
	Use:   "policy [policy]",
	Short: "Set the default expansion policy",
	Long: `Set the expansion policy used by filtered renders without --policy.

Available policies:
  direct                     - only the selected nodes
  direct+ancestors           - also the headings that contain them
  direct+ancestors+siblings  - also neighbouring siblings`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsPolicy,
}

var settingsDuplicateCmd = &cobra.Command{
	Use:   "on-duplicate [policy]",
	Short: "Set the default duplicate policy",
	Long: `Set what ingest does with bytes it already stored for the same path.

Available policies: fail, skip, replace`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsDuplicate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsPolicyCmd)
	settingsCmd.AddCommand(settingsDuplicateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Render]")
	cmd.Printf("  Policy: %s\n", settings.Render.Policy)
	cmd.Printf("  Window: %d\n", settings.Render.Window)
	cmd.Printf("  Budget: %s\n", formatBudget(settings.Render.Budget))
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Limit: %d\n", settings.Search.Limit)
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  On duplicate: %s\n", settings.Ingest.OnDuplicate)
	cmd.Printf("  Concurrency: %d\n", settings.Ingest.Concurrency)
	cmd.Println()

	cmd.Println("[Watch]")
	cmd.Printf("  Extensions: %s\n", strings.Join(settings.Watch.Extensions, ", "))
	cmd.Printf("  Rate: %g/s\n", settings.Watch.Rate)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'weft settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Weft Settings Wizard")
	cmd.Println("====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Expansion policy
	cmd.Println("Step 1: Select Expansion Policy")
	cmd.Println("-------------------------------")
	policies := domain.AllExpansionPolicies()
	current := 1
	for i, p := range policies {
		if p == settings.Render.Policy {
			current = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	cmd.Printf("\nEnter choice [%d]: ", current)
	settings.Render.Policy = policies[parseChoice(readLine(reader), len(policies), current)-1]
	cmd.Printf("Set expansion policy to: %s\n\n", settings.Render.Policy)

	// Step 2: Duplicate policy
	cmd.Println("Step 2: Select Duplicate Policy")
	cmd.Println("-------------------------------")
	dups := domain.AllDuplicatePolicies()
	current = 1
	for i, p := range dups {
		if p == settings.Ingest.OnDuplicate {
			current = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	cmd.Printf("\nEnter choice [%d]: ", current)
	settings.Ingest.OnDuplicate = dups[parseChoice(readLine(reader), len(dups), current)-1]
	cmd.Printf("Set duplicate policy to: %s\n\n", settings.Ingest.OnDuplicate)

	// Step 3: Search limit
	cmd.Println("Step 3: Default Search Limit")
	cmd.Println("----------------------------")
	cmd.Printf("Enter limit [%d]: ", settings.Search.Limit)
	if n, err := strconv.Atoi(readLine(reader)); err == nil && n > 0 {
		settings.Search.Limit = n
	}
	cmd.Printf("Set search limit to: %d\n\n", settings.Search.Limit)

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Settings saved.")
	return nil
}

func runSettingsPolicy(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	policy := domain.ExpansionPolicy(args[0])
	if err := settingsService.SetRenderPolicy(policy); err != nil {
		return fmt.Errorf("failed to set expansion policy: %w", err)
	}
	cmd.Printf("Expansion policy set to: %s\n", policy)
	return nil
}

func runSettingsDuplicate(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	policy := domain.DuplicatePolicy(args[0])
	if err := settingsService.SetDuplicatePolicy(policy); err != nil {
		return fmt.Errorf("failed to set duplicate policy: %w", err)
	}
	cmd.Printf("Duplicate policy set to: %s\n", policy)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func formatBudget(budget int) string {
	if budget == 0 {
		return "unlimited"
	}
	return strconv.Itoa(budget) + " bytes"
}
