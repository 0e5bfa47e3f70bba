package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register people from face photos",
	Long: `Register a single person, or a batch of people listed in a CSV roster.

The roster has a header row with the columns name, employee_id and image.
Image paths are resolved relative to --dir (defaults to the roster's directory).

Examples:
  # Register one person
  face-attendance enroll --name "Alice Nováková" --employee-id E100 --image alice.jpg

  # Register everyone in a roster with 3 parallel workers
  face-attendance enroll --csv staff/roster.csv --concurrency 3`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Full name")
	enrollCmd.Flags().String("employee-id", "", "Employee ID (must be unique)")
	enrollCmd.Flags().String("image", "", "Face photo")
	enrollCmd.Flags().String("csv", "", "CSV roster for batch enrollment")
	enrollCmd.Flags().String("dir", "", "Directory containing roster images")
	enrollCmd.Flags().Int("concurrency", 2, "Number of parallel workers for batch enrollment")
}

// rosterEntry is one row of an enrollment roster.
type rosterEntry struct {
	Line         int
	Name         string
	EmployeeCode string
	Image        string
}

// readRoster parses a roster with name, employee_id and image columns in any order.
func readRoster(r io.Reader, dir string) ([]rosterEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "employee_id", "image"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("roster is missing the %q column", required)
		}
	}

	var entries []rosterEntry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		image := record[cols["image"]]
		if image != "" && !filepath.IsAbs(image) {
			image = filepath.Join(dir, image)
		}
		entries = append(entries, rosterEntry{
			Line:         line,
			Name:         record[cols["name"]],
			EmployeeCode: record[cols["employee_id"]],
			Image:        image,
		})
	}
	return entries, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	rosterPath := mustGetString(cmd, "csv")
	if rosterPath == "" && mustGetString(cmd, "image") == "" {
		return errors.New("either --image or --csv is required")
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

	if rosterPath == "" {
		return enrollOne(ctx, service, rosterEntry{
			Name:         mustGetString(cmd, "name"),
			EmployeeCode: mustGetString(cmd, "employee-id"),
			Image:        mustGetString(cmd, "image"),
		})
	}

	dir := mustGetString(cmd, "dir")
	if dir == "" {
		dir = filepath.Dir(rosterPath)
	}
	f, err := os.Open(rosterPath)
	if err != nil {
		return fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	entries, err := readRoster(f, dir)
	if err != nil {
		return fmt.Errorf("failed to read roster: %w", err)
	}
	return enrollBatch(ctx, service, entries, max(mustGetInt(cmd, "concurrency"), 1))
}

func enrollEntry(ctx context.Context, service *attendance.Service, entry rosterEntry) error {
	image, err := os.ReadFile(entry.Image)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	_, err = service.Enroll(ctx, attendance.EnrollRequest{
		Name:         entry.Name,
		EmployeeCode: entry.EmployeeCode,
		Image:        image,
	})
	return err
}

func enrollOne(ctx context.Context, service *attendance.Service, entry rosterEntry) error {
	if err := enrollEntry(ctx, service, entry); err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}
	fmt.Printf("Registered %s (%s)\n", strings.TrimSpace(entry.Name), strings.TrimSpace(entry.EmployeeCode))
	return nil
}

func enrollBatch(ctx context.Context, service *attendance.Service, entries []rosterEntry, concurrency int) error {
	if len(entries) == 0 {
		fmt.Println("Roster is empty")
		return nil
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("people"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	type failure struct {
		entry rosterEntry
		err   error
	}
	var (
		failures []failure
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for _, entry := range entries {
		wg.Add(1)
		go func(e rosterEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := enrollEntry(ctx, service, e); err != nil {
				mu.Lock()
				failures = append(failures, failure{e, err})
				mu.Unlock()
			}
			bar.Add(1)
		}(entry)
	}
	wg.Wait()
	bar.Finish()

	fmt.Printf("\nRegistered: %d, failed: %d\n", len(entries)-len(failures), len(failures))
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		fmt.Printf("  line %d (%s): %v\n", f.entry.Line, f.entry.EmployeeCode, f.err)
	}
	return fmt.Errorf("%d of %d enrollments failed", len(failures), len(entries))
}
