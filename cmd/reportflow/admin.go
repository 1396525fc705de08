package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/report"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands: users, groups, sheets, settings",
	}

	cmd.AddCommand(newSetPasswordCmd())
	cmd.AddCommand(newAddUserCmd())
	cmd.AddCommand(newAddGroupCmd())
	cmd.AddCommand(newAddSheetCmd())
	cmd.AddCommand(newAssignCmd())
	cmd.AddCommand(newBlockCmd("block", true))
	cmd.AddCommand(newBlockCmd("unblock", false))
	return cmd
}

// adminDB loads the config and opens the database for an admin command.
func adminDB(configPath string) (*gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return gormDB, nil
}

func newSetPasswordCmd() *cobra.Command {
	var (
		configPath string
		setBy      string
	)

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set the worker password",
		Long:  "Stores a new version of the shared worker password. Earlier versions are kept as history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetPassword(cmd, configPath, setBy)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	cmd.Flags().StringVar(&setBy, "by", "", "who is setting the password (recorded in history)")
	return cmd
}

func runSetPassword(cmd *cobra.Command, configPath, setBy string) error {
	out := cmd.OutOrStdout()

	password, err := readPassword(cmd, "New worker password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	confirm, err := readPassword(cmd, "Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	gormDB, err := adminDB(configPath)
	if err != nil {
		return err
	}
	store, err := report.NewStore(gormDB)
	if err != nil {
		return err
	}
	if err := store.PutSetting(report.SettingWorkerPassword, password, setBy); err != nil {
		return err
	}
	fmt.Fprintln(out, "Worker password updated.")
	return nil
}

// readPassword reads a password without echo when stdin is a terminal, and
// falls back to a plain line read otherwise (pipes, tests).
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return "", fmt.Errorf("read password: no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAddUserCmd() *cobra.Command {
	var (
		configPath string
		groupName  string
	)

	cmd := &cobra.Command{
		Use:   "add-user <platform-id> <full name>",
		Short: "Register a submitter",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			user := models.User{
				PlatformID: args[0],
				FullName:   strings.Join(args[1:], " "),
			}
			if groupName != "" {
				group, err := groupByName(gormDB, groupName)
				if err != nil {
					return err
				}
				user.GroupID = &group.ID
			}
			if err := gormDB.Create(&user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", user.PlatformID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) registered\n", user.FullName, user.PlatformID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	cmd.Flags().StringVarP(&groupName, "group", "g", "", "assign the user to this group")
	return cmd
}

func newAddGroupCmd() *cobra.Command {
	var (
		configPath string
		topicID    string
		sheetName  string
	)

	cmd := &cobra.Command{
		Use:   "add-group <name> <channel-id>",
		Short: "Register a report destination group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			group := models.Group{
				Name:      args[0],
				ChannelID: args[1],
				TopicID:   topicID,
			}
			if sheetName != "" {
				var sheet models.Sheet
				if err := gormDB.Where("name = ?", sheetName).First(&sheet).Error; err != nil {
					return fmt.Errorf("sheet %q not found: %w", sheetName, err)
				}
				group.SheetID = &sheet.ID
			}
			if err := gormDB.Create(&group).Error; err != nil {
				return fmt.Errorf("create group %s: %w", group.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Group %s -> channel %s registered\n", group.Name, group.ChannelID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	cmd.Flags().StringVar(&topicID, "topic", "", "sub-topic (thread) inside the channel")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "sheet that confirmed reports land in")
	return cmd
}

func newAddSheetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "add-sheet <name> <spreadsheet-id> <worksheet>",
		Short: "Register a spreadsheet worksheet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			sheet := models.Sheet{
				Name:          args[0],
				SpreadsheetID: args[1],
				Worksheet:     args[2],
			}
			if err := gormDB.Create(&sheet).Error; err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sheet %s registered\n", sheet.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

func newAssignCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "assign <platform-id> <group-name>",
		Short: "Assign a submitter to a destination group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			user, err := userByPlatformID(gormDB, args[0])
			if err != nil {
				return err
			}
			group, err := groupByName(gormDB, args[1])
			if err != nil {
				return err
			}
			if err := gormDB.Model(user).Update("group_id", group.ID).Error; err != nil {
				return fmt.Errorf("assign %s to %s: %w", args[0], args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s assigned to group %s\n", user.FullName, group.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

func newBlockCmd(use string, blocked bool) *cobra.Command {
	var configPath string

	short := "Block a submitter from starting reports"
	if !blocked {
		short = "Unblock a submitter"
	}
	cmd := &cobra.Command{
		Use:   use + " <platform-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			user, err := userByPlatformID(gormDB, args[0])
			if err != nil {
				return err
			}
			if err := gormDB.Model(user).Update("blocked", blocked).Error; err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s %sed\n", user.FullName, use)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

func userByPlatformID(gormDB *gorm.DB, platformID string) (*models.User, error) {
	var user models.User
	if err := gormDB.Where("platform_id = ?", platformID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %q not found: %w", platformID, err)
	}
	return &user, nil
}

func groupByName(gormDB *gorm.DB, name string) (*models.Group, error) {
	var group models.Group
	if err := gormDB.Where("name = ?", name).First(&group).Error; err != nil {
		return nil, fmt.Errorf("group %q not found: %w", name, err)
	}
	return &group, nil
}
