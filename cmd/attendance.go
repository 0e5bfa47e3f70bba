package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "List or mark attendance",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records for a day",
	Long: `List attendance records for a day, newest first.

Examples:
  face-attendance attendance list
  face-attendance attendance list --date 2026-03-02`,
	RunE: runAttendanceList,
}

var attendanceMarkCmd = &cobra.Command{
	Use:   "mark",
	Short: "Mark attendance from a face photo",
	Long: `Recognize the face in a photo and mark attendance for today, exactly as the
POST /attendance endpoint does.

Examples:
  face-attendance attendance mark --image snapshot.jpg`,
	RunE: runAttendanceMark,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceMarkCmd)

	attendanceListCmd.Flags().String("date", "", "Date as YYYY-MM-DD (default today)")
	attendanceListCmd.Flags().Int("limit", constants.DefaultAttendanceLimit, "Maximum number of records")

	attendanceMarkCmd.Flags().String("image", "", "Face photo")
	attendanceMarkCmd.MarkFlagRequired("image")
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	if date == "" {
		date = database.DateOf(time.Now())
	}
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
	}

	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListAttendance(ctx, database.AttendanceFilter{
		Date:  date,
		Limit: min(mustGetInt(cmd, "limit"), constants.MaxAttendanceLimit),
	})
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}
	present, err := store.CountAttendance(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to count attendance: %w", err)
	}
	registered, err := store.CountIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to count identities: %w", err)
	}

	fmt.Printf("Attendance for %s\n\n", date)
	for _, r := range records {
		fmt.Printf("  %s  %-14s %-32s %s\n", r.Time, r.EmployeeCode, r.Name, r.Status)
	}
	fmt.Printf("\nPresent: %d of %d registered\n", present, registered)
	return nil
}

func runAttendanceMark(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(mustGetString(cmd, "image"))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := newService(cfg, store)
	if err != nil {
		return err
	}

	result, err := service.Mark(ctx, image)
	switch {
	case errors.Is(err, attendance.ErrUnknownUser):
		return errors.New("unknown user, please register first")
	case errors.Is(err, attendance.ErrNoFaceDetected):
		return errors.New("no face detected")
	case err != nil:
		return fmt.Errorf("attendance failed: %w", err)
	}

	if result.Outcome == attendance.OutcomeAlreadyMarked {
		fmt.Printf("Attendance already marked for %s today\n", result.Identity.Name)
		return nil
	}
	fmt.Printf("Attendance marked for %s at %s (distance %.3f)\n",
		result.Identity.Name, result.Record.Time, result.Distance)
	return nil
}
