package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hugolld/cc-api-switcher/internal/switcher"
	"github.com/hugolld/cc-api-switcher/internal/switcher/config"
	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/profile"
)

// App carries the dependencies and persistent flag values shared by all
// commands. Tests construct it with an in-memory filesystem and a stub
// prompter.
type App struct {
	Fs       afero.Fs
	Logger   *slog.Logger
	Prompter Prompter
	Stdout   io.Writer
	Stderr   io.Writer

	// bound persistent flags
	dir        string
	target     string
	configPath string
}

func (a *App) newSwitcher() (*switcher.Switcher, error) {
	return switcher.New(switcher.Options{
		Fs:          a.Fs,
		Logger:      a.Logger,
		ExplicitDir: a.dir,
		TargetPath:  a.target,
		ConfigPath:  a.configPath,
	})
}

func okMark() string  { return color.GreenString("✓") }
func errMark() string { return color.RedString("✗") }

// NewRootCommand constructs the root cobra command.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cc-api-switch",
		Short:         "Switch between coding-assistant API settings profiles",
		Long:          "cc-api-switch manages named settings profiles and switches which one is active by atomically replacing the settings file, with rotating backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(app.Stdout)
	cmd.SetErr(app.Stderr)

	cmd.PersistentFlags().StringVar(&app.dir, "dir", "", "Search only this profile directory (disables hierarchical search)")
	cmd.PersistentFlags().StringVar(&app.target, "target", "", "Settings file to switch (default: configured target)")
	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Configuration file path")

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newSwitchCommand(app))
	cmd.AddCommand(newShowCommand(app))
	cmd.AddCommand(newValidateCommand(app))
	cmd.AddCommand(newBackupCommand(app))
	cmd.AddCommand(newBackupsCommand(app))
	cmd.AddCommand(newRestoreCommand(app))
	cmd.AddCommand(newImportCommand(app))
	cmd.AddCommand(newInitCommand(app))
	cmd.AddCommand(newConfigCommand(app))
	cmd.AddCommand(newDirsCommand(app))

	return cmd
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			entries, err := sw.ListAll()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.Stdout, "No profiles found in any search directory.")
				return nil
			}
			fmt.Fprintf(app.Stdout, "%-20s %-10s %s\n", "NAME", "PROVIDER", "SOURCE")
			for _, entry := range entries {
				provider := "?"
				if p, err := sw.LoadFile(entry.Path, entry.Name); err == nil {
					provider = p.Provider()
				}
				fmt.Fprintf(app.Stdout, "%-20s %-10s %s\n", entry.Name, provider, entry.Source)
			}
			return nil
		},
	}
}

func newSwitchCommand(app *App) *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:     "switch [name]",
		Aliases: []string{"use"},
		Short:   "Activate a settings profile",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = strings.TrimSpace(args[0])
			} else {
				entries, err := sw.ListAll()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("no profiles found. Use 'cc-api-switch import' or create <name>_settings.json in a search directory")
				}
				names := make([]string, 0, len(entries))
				for _, entry := range entries {
					names = append(names, entry.Name)
				}
				_, selected, err := app.Prompter.Select("Select profile to activate", names, "")
				if err != nil {
					return err
				}
				name = selected
			}

			createBackup := sw.Config().AutoBackupEnabled() && !noBackup
			path, err := sw.Switch(name, createBackup)

			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				fmt.Fprintf(app.Stderr, "%s Profile '%s' failed validation:\n", errMark(), name)
				for _, issue := range vErr.Issues {
					fmt.Fprintf(app.Stderr, "  - %s\n", issue)
				}
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s Switched to profile '%s' (%s)\n", okMark(), name, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backing up the current settings file")
	return cmd
}

func newShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the currently active settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			p, err := sw.Current()
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintf(app.Stdout, "No settings file found at %s\n", sw.TargetPath())
				return nil
			}
			printProfileInfo(app.Stdout, p)
			return nil
		},
	}
}

// printProfileInfo renders the show-style summary of a profile.
func printProfileInfo(w io.Writer, p *profile.Profile) {
	baseURL, ok := p.EnvString(profile.EnvBaseURL)
	if !ok {
		baseURL = "N/A"
	}
	token, ok := p.EnvString(profile.EnvAuthToken)
	if !ok {
		token = "N/A"
	} else {
		token = profile.MaskToken(token)
	}

	fmt.Fprintf(w, "Profile: %s\n", p.Name)
	fmt.Fprintf(w, "Provider: %s\n", p.Provider())
	fmt.Fprintf(w, "Base URL: %s\n", baseURL)
	fmt.Fprintf(w, "Auth Token: %s\n", token)

	if model, ok := p.EnvString(profile.EnvModel); ok && model != "" {
		fmt.Fprintf(w, "Model: %s\n", model)
	}
	if ms, ok := p.EnvString(profile.EnvTimeoutMS); ok && ms != "" {
		var timeout float64
		if _, err := fmt.Sscanf(ms, "%f", &timeout); err == nil {
			fmt.Fprintf(w, "Timeout: %gs\n", timeout/1000)
		}
	}
	if len(p.EnabledPlugins) > 0 {
		var enabled []string
		for name, on := range p.EnabledPlugins {
			if on {
				enabled = append(enabled, name)
			}
		}
		if len(enabled) > 0 {
			if len(enabled) > 3 {
				enabled = enabled[:3]
			}
			fmt.Fprintf(w, "Enabled Plugins: %s\n", strings.Join(enabled, ", "))
		}
	}
}

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [name]",
		Short: "Validate a profile (or the active settings)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}

			var p *profile.Profile
			if len(args) == 1 {
				p, err = sw.Load(args[0])
				if err != nil {
					return err
				}
			} else {
				p, err = sw.Current()
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("no settings file found at %s", sw.TargetPath())
				}
			}

			issues := p.Validate()
			if len(issues) == 0 {
				fmt.Fprintf(app.Stdout, "%s Profile '%s' is valid\n", okMark(), p.Name)
				return nil
			}
			fmt.Fprintf(app.Stdout, "%s Profile '%s' has %d issue(s):\n", errMark(), p.Name, len(issues))
			for _, issue := range issues {
				fmt.Fprintf(app.Stdout, "  - %s\n", issue)
			}
			return &domain.ValidationError{Issues: issues}
		},
	}
}

func newBackupCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the current settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			path, err := sw.CreateBackup()
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(app.Stdout, "Nothing to back up: %s does not exist\n", sw.TargetPath())
				return nil
			}
			fmt.Fprintf(app.Stdout, "%s Created backup: %s\n", okMark(), path)
			return nil
		},
	}
}

func newBackupsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups of the settings file, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			records, err := sw.ListBackups()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(app.Stdout, "No backups found.")
				return nil
			}
			for i, record := range records {
				fmt.Fprintf(app.Stdout, "%2d. %s  %6d bytes  %s\n",
					i+1, record.ModTime.Format("2006-01-02 15:04:05"), record.Size, filepath.Base(record.Path))
			}
			return nil
		},
	}
}

func newRestoreCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Restore the settings file from a backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}

			var backupPath string
			if len(args) == 1 {
				backupPath = args[0]
			} else {
				records, err := sw.ListBackups()
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return fmt.Errorf("no backups found for %s", sw.TargetPath())
				}
				items := make([]string, 0, len(records))
				for _, record := range records {
					items = append(items, filepath.Base(record.Path))
				}
				idx, _, err := app.Prompter.Select("Select backup to restore", items, "")
				if err != nil {
					return err
				}
				backupPath = records[idx].Path
			}

			if !force {
				confirm, err := app.Prompter.Confirm(
					fmt.Sprintf("Overwrite %s with %s?", sw.TargetPath(), filepath.Base(backupPath)), false)
				if err != nil {
					return err
				}
				if !confirm {
					fmt.Fprintln(app.Stdout, "Restore cancelled.")
					return nil
				}
			}

			if err := sw.Restore(backupPath); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s Restored %s from %s\n", okMark(), sw.TargetPath(), filepath.Base(backupPath))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")
	return cmd
}

func newImportCommand(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a profile JSON file into the global profiles directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			dst, issues, err := sw.Import(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s Imported profile to %s\n", okMark(), dst)
			if len(issues) > 0 {
				fmt.Fprintln(app.Stdout, "Warning: the imported profile has validation issues:")
				for _, issue := range issues {
					fmt.Fprintf(app.Stdout, "  - %s\n", issue)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (default: derived from the filename)")
	return cmd
}

func newInitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and create the profiles directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			cfg := sw.Config()
			if err := cfg.Initialize(); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s Wrote configuration to %s\n", okMark(), cfg.Path())
			fmt.Fprintf(app.Stdout, "%s Profiles directory: %s\n", okMark(), cfg.ProfilesDir())
			return nil
		},
	}
}

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persisted configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			for _, key := range config.Keys() {
				value, _ := sw.Config().Get(key)
				fmt.Fprintf(app.Stdout, "%s = %s\n", key, value)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			value, ok := sw.Config().Get(args[0])
			if !ok {
				return fmt.Errorf("unknown configuration key %q", args[0])
			}
			fmt.Fprintln(app.Stdout, value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set and persist one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			cfg := sw.Config()
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s %s = %s\n", okMark(), args[0], args[1])
			return nil
		},
	})

	return cmd
}

func newDirsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dirs",
		Short: "Print the profile search directories in precedence order",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.newSwitcher()
			if err != nil {
				return err
			}
			for i, dir := range sw.SearchDirs() {
				marker := ""
				if exists, err := afero.DirExists(app.Fs, dir.Path); err == nil && !exists {
					marker = "  (missing)"
				}
				fmt.Fprintf(app.Stdout, "%d. %s [%s]%s\n", i+1, dir.Path, dir.Source, marker)
			}
			return nil
		},
	}
}
