package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"craftbridge/internal/cli/ui"
	"craftbridge/pkg/sdk"

	"github.com/spf13/cobra"
)

var historyLimit int

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server and wait until it accepts commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleStart()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the server gracefully",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleStop()
	},
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate the server process immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		if err := Client.Kill(ctx); err != nil {
			return friendly(err)
		}
		fmt.Println("Kill signal sent.")
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run a console command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleExec(strings.Join(args, " "))
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List online players",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handlePlayers()
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the online player count from the status endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		online, err := Client.PlayerCount(ctx)
		if err != nil {
			return friendly(err)
		}
		fmt.Println(online)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lifecycle state and player count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleStatus()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show CPU and memory of the server process",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		stats, err := Client.Stats(ctx)
		if err != nil {
			return friendly(err)
		}
		fmt.Printf("PID: %d\nCPU: %.1f%%\nRAM: %s\n", stats.PID, stats.CPU, formatBytes(stats.RAM))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent events and commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleHistory(historyLimit)
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	RootCmd.AddCommand(startCmd, stopCmd, killCmd, execCmd, playersCmd, countCmd, statusCmd, statsCmd, historyCmd, consoleCmd)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), Timeout)
}

// friendly turns precondition failures into plain messages.
func friendly(err error) error {
	switch {
	case sdk.IsNotRunning(err):
		return fmt.Errorf("the server is not running")
	case sdk.IsAlreadyRunning(err):
		return fmt.Errorf("the server is already running")
	default:
		return err
	}
}

func handleStart() error {
	fmt.Println("Starting server, this can take a while...")
	start := time.Now()
	status, err := Client.Start(context.Background())
	if err != nil {
		return friendly(err)
	}
	fmt.Printf("Server is %s after %s.\n", status.State, time.Since(start).Round(time.Second))
	return nil
}

func handleStop() error {
	status, err := Client.Stop(context.Background())
	if err != nil {
		return friendly(err)
	}
	fmt.Printf("Server is %s.\n", status.State)
	return nil
}

func handleExec(command string) error {
	ctx, cancel := requestContext()
	defer cancel()
	resp, err := Client.Exec(ctx, command)
	if err != nil {
		return friendly(err)
	}
	if resp != "" {
		fmt.Println(resp)
	}
	return nil
}

func handlePlayers() error {
	ctx, cancel := requestContext()
	defer cancel()
	roster, err := Client.Players(ctx)
	if err != nil {
		return friendly(err)
	}

	fmt.Printf("Players online: %d / %d\n", roster.Count, roster.Max)
	for _, p := range roster.Players {
		fmt.Printf("- %s\n", p)
	}
	return nil
}

func handleStatus() error {
	ctx, cancel := requestContext()
	defer cancel()
	status, err := Client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("State:   %s\n", status.State)
	if status.State == "RUNNING" {
		if status.Reachable {
			fmt.Printf("Players: %d / %d\n", status.Online, status.Max)
		} else {
			fmt.Println("Players: unknown (status query unreachable)")
		}
	}
	return nil
}

func handleHistory(limit int) error {
	ctx, cancel := requestContext()
	defer cancel()
	entries, err := Client.History(ctx, limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}
	fmt.Println(ui.RenderTable([]string{"TIME", "KIND", "SUBJECT", "DETAIL"}, historyRows(entries)))
	return nil
}

// historyRows lists entries oldest first.
func historyRows(entries []sdk.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		detail := strings.ReplaceAll(e.Detail, "\n", " ")
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		if e.Failed {
			detail = "FAILED: " + detail
		}
		rows = append(rows, []string{e.CreatedAt.Local().Format("15:04:05"), e.Kind, e.Subject, detail})
	}
	return rows
}

func runConsole() error {
	return ui.RunConsole(Client)
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
