package cmd

import (
	"context"
	"fmt"

	"craftbridge/internal/cli/ui"
	"craftbridge/pkg/sdk"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage world backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Archive the server directory, pausing world saves while running",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		return handleBackupCreate(name)
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleListBackups()
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		if err := Client.DeleteBackup(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Backup %s deleted.\n", args[0])
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the server directory with a backup (server must be stopped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Client.RestoreBackup(context.Background(), args[0]); err != nil {
			return friendly(err)
		}
		fmt.Printf("Backup %s restored.\n", args[0])
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupDeleteCmd, backupRestoreCmd)
	RootCmd.AddCommand(backupCmd)
}

func handleBackupCreate(name string) error {
	fmt.Println("Creating backup...")
	info, err := Client.CreateBackup(context.Background(), name)
	if err != nil {
		return friendly(err)
	}
	fmt.Printf("Backup %s created (%s).\n", info.Name, formatBytes(uint64(info.Size)))
	return nil
}

func handleListBackups() error {
	ctx, cancel := requestContext()
	defer cancel()
	backups, err := Client.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	fmt.Println(ui.RenderTable([]string{"NAME", "SIZE", "CREATED"}, backupRows(backups)))
	return nil
}

func backupRows(backups []sdk.BackupInfo) [][]string {
	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, []string{b.Name, formatBytes(uint64(b.Size)), b.CreatedAt.Local().Format("2006-01-02 15:04")})
	}
	return rows
}
