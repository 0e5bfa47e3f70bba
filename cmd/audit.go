package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/audit"
	"github.com/kozaktomas/face-attendance/internal/config"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check registered faces for problems",
}

var auditAmbiguousCmd = &cobra.Command{
	Use:   "ambiguous",
	Short: "List people whose faces are within matching tolerance of each other",
	Long: `List pairs of registered people whose face embeddings are close enough that
either could match the other's photo.

Attendance takes the first registered match, so the later-registered person of
a pair may be marked as the earlier one. Re-enroll them with better photos.`,
	RunE: runAuditAmbiguous,
}

var auditCandidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List every registered person a photo would match",
	Long: `Extract the face from a photo and list every registered person within
matching tolerance, closest first. Attendance is not marked.

On PostgreSQL the ranking runs in the database through pgvector.

Example:
  face-attendance audit candidates --image snapshot.jpg`,
	RunE: runAuditCandidates,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditAmbiguousCmd)
	auditCmd.AddCommand(auditCandidatesCmd)

	auditCandidatesCmd.Flags().String("image", "", "Face photo")
	auditCandidatesCmd.MarkFlagRequired("image")
}

func runAuditAmbiguous(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	cal, err := cfg.Calibration()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pairs, err := audit.New(store, cal.Tolerance).AmbiguousPairs(ctx)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if len(pairs) == 0 {
		fmt.Printf("No identities within %.2f of each other\n", cal.Tolerance)
		return nil
	}

	fmt.Printf("Found %d ambiguous pairs (tolerance %.2f):\n\n", len(pairs), cal.Tolerance)
	for _, p := range pairs {
		fmt.Printf("  %.4f  %s (%s)  <->  %s (%s)\n",
			p.Distance, p.First.Name, p.First.EmployeeCode, p.Second.Name, p.Second.EmployeeCode)
	}
	return nil
}

func runAuditCandidates(cmd *cobra.Command, args []string) error {
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

	probe, err := service.Embed(ctx, image)
	if errors.Is(err, attendance.ErrNoFaceDetected) {
		return errors.New("no face detected")
	}
	if err != nil {
		return err
	}

	candidates, err := audit.New(store, service.Tolerance()).Candidates(ctx, probe)
	if err != nil {
		return fmt.Errorf("candidate lookup failed: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Printf("Nobody registered within %.2f of this face\n", service.Tolerance())
		return nil
	}

	fmt.Printf("%d candidates (tolerance %.2f), attendance would go to the lowest ID:\n\n", len(candidates), service.Tolerance())
	for _, c := range candidates {
		fmt.Printf("  %.4f  #%d %s (%s)\n", c.Distance, c.Identity.ID, c.Identity.Name, c.Identity.EmployeeCode)
	}
	return nil
}
