package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recruitai/internal/client"
	"recruitai/internal/localstore"
	"recruitai/internal/poller"
	"recruitai/internal/relay"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send a JD and resumes for scoring",
	Example: `  recruitctl submit --jd jd.pdf --resume ana.pdf --resume ben.docx --job-id job_42
  recruitctl submit --jd jd.pdf --resume ana.pdf --wait
  recruitctl submit --jd jd.pdf --resume ana.pdf --sync`,
	RunE: runSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status <submission-id>",
	Short: "Show the progress of a queued submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showSubmission(cmd, args[0], false)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <submission-id>",
	Short: "Stop a queued submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showSubmission(cmd, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd, statusCmd, cancelCmd)

	submitCmd.Flags().String("jd", "", "job description file (pdf, docx, doc or txt)")
	submitCmd.Flags().StringArrayP("resume", "r", nil, "resume file, repeatable")
	submitCmd.Flags().String("job-id", "", "role job id the candidates belong to")
	submitCmd.Flags().String("job-title", "", "role title sent with the request")
	submitCmd.Flags().Bool("sync", false, "wait for the scoring response instead of queueing")
	submitCmd.Flags().BoolP("wait", "w", false, "poll until new candidates appear")
	submitCmd.Flags().Duration("poll-interval", poller.DefaultConfig().Interval, "interval between candidate count reads")
	submitCmd.Flags().Int("poll-attempts", poller.DefaultConfig().MaxAttempts, "reads before giving up")
	submitCmd.MarkFlagRequired("jd")

	viper.BindPFlag("poll-interval", submitCmd.Flags().Lookup("poll-interval"))
	viper.BindPFlag("poll-attempts", submitCmd.Flags().Lookup("poll-attempts"))
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	jd, _ := cmd.Flags().GetString("jd")
	resumes, _ := cmd.Flags().GetStringArray("resume")
	jobID, _ := cmd.Flags().GetString("job-id")
	jobTitle, _ := cmd.Flags().GetString("job-title")
	upload := client.Upload{JD: jd, Resumes: resumes, JobID: jobID, JobTitle: jobTitle}

	if sync, _ := cmd.Flags().GetBool("sync"); sync {
		return submitSync(ctx, e, upload)
	}

	sub, err := e.api.Submit(ctx, upload)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (baseline %d)\n", labelStyle.Render("Submitted:"), sub.SubmissionID, sub.Baseline)

	if wait, _ := cmd.Flags().GetBool("wait"); !wait {
		fmt.Printf("Check progress with: recruitctl status %s\n", sub.SubmissionID)
		return nil
	}
	return waitForCandidates(ctx, e, sub)
}

// submitSync scores in one request and keeps the ranked list locally.
func submitSync(ctx context.Context, e *env, upload client.Upload) error {
	fmt.Println("Scoring, this can take a few minutes...")
	body, err := e.api.Score(ctx, upload)
	if err != nil {
		return err
	}
	ranked := relay.ParseRanked(body, upload.JobID)
	if err := saveRanked(ctx, e, ranked); err != nil {
		e.log.Warn("could not save ranked candidates locally", zap.Error(err))
	}
	list := make([]views.CandidateView, 0, len(ranked))
	for _, c := range ranked {
		list = append(list, projectRanked(c))
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Ranked candidates (%d)", len(list))))
	fmt.Println(candidateTable(list))
	return nil
}

func projectRanked(c *storage.Candidate) views.CandidateView {
	c.Status = storage.DeriveStatus(c.Score)
	return views.Project(c)
}

// waitForCandidates polls the candidate count until it moves past the
// submission's baseline.
func waitForCandidates(ctx context.Context, e *env, sub *client.Submission) error {
	cfg := poller.Config{
		Interval:    viper.GetDuration("poll-interval"),
		MaxAttempts: viper.GetInt("poll-attempts"),
	}
	count := func(ctx context.Context) (int, error) {
		return e.api.CountCandidates(ctx, sub.JobID)
	}
	out := poller.Poll(ctx, cfg, sub.Baseline, count, e.log, func(attempt, n int) {
		e.log.Debug("polled candidate count", zap.Int("attempt", attempt), zap.Int("count", n))
		fmt.Printf("\r%s %d/%d", labelStyle.Render("Waiting for results:"), attempt, cfg.MaxAttempts)
	})
	fmt.Println()

	switch out.State {
	case poller.StateSucceeded:
	case poller.StateCancelled:
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := e.api.CancelSubmission(cctx, sub.SubmissionID); err != nil {
			e.log.Debug("cancel submission", zap.Error(err))
		}
		return fmt.Errorf("stopped waiting: %s", out.Message)
	default:
		return fmt.Errorf("%s", out.Message)
	}

	cands, err := e.api.Candidates(ctx, client.ListOptions{JobID: sub.JobID})
	if err != nil {
		return err
	}
	ranked := make([]*storage.Candidate, 0, len(cands))
	for _, c := range cands {
		ranked = append(ranked, c.Candidate)
	}
	if err := saveRanked(ctx, e, ranked); err != nil {
		e.log.Warn("could not save ranked candidates locally", zap.Error(err))
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("%d new candidate(s) scored", out.Count-sub.Baseline)))
	fmt.Println(candidateTable(cands))
	return nil
}

func saveRanked(ctx context.Context, e *env, ranked []*storage.Candidate) error {
	return e.state.PutJSON(ctx, localstore.KeyRankedCandidates, ranked)
}

func showSubmission(cmd *cobra.Command, id string, cancel bool) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	var sub *client.Submission
	if cancel {
		sub, err = e.api.CancelSubmission(cmd.Context(), id)
	} else {
		sub, err = e.api.Submission(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", labelStyle.Render("Status:"), sub.Status)
	fmt.Printf("%s %d -> %d after %d read(s)\n", labelStyle.Render("Candidates:"), sub.Baseline, sub.Count, sub.Attempts)
	if sub.Message != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Message:"), sub.Message)
	}
	return nil
}
